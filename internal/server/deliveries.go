package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	payoutdomain "github.com/trovio/settled/internal/payout/domain"
)

type recordDeliveryRequest struct {
	OrderItemID string `json:"order_item_id" binding:"required"`
	SellerID    string `json:"seller_id" binding:"required"`
}

type recordDeliveryResponse struct {
	Success bool `json:"success"`
	payoutdomain.EarningOutcome
}

// recordDelivery is the integration point for delivery webhooks. Upstreams
// may retry freely; replays return success without a second credit.
func (s *Server) recordDelivery(c *gin.Context) {
	var req recordDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	orderItemID, err := snowflake.ParseString(req.OrderItemID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	sellerID, err := snowflake.ParseString(req.SellerID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	outcome, err := s.payoutSvc.RecordDelivery(c.Request.Context(), payoutdomain.RecordDeliveryRequest{
		OrderItemID: orderItemID,
		SellerID:    sellerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, recordDeliveryResponse{
		Success:        true,
		EarningOutcome: outcome,
	})
}
