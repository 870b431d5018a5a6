package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/rupeeback/verify/pkg/db/pagination"
)

func (s *Server) ListPendingReview(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	bills, err := s.verificationSvc.PendingReview(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bills})
}

type reviewRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

func (s *Server) ApproveBill(c *gin.Context) {
	reviewerID, err := reviewerID(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	billID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req reviewRequest
	_ = c.ShouldBindJSON(&req)

	bill, err := s.verificationSvc.ManualApprove(c.Request.Context(), billID, reviewerID, strings.TrimSpace(req.Notes))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bill})
}

func (s *Server) RejectBill(c *gin.Context) {
	reviewerID, err := reviewerID(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	billID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req reviewRequest
	_ = c.ShouldBindJSON(&req)

	bill, err := s.verificationSvc.ManualReject(c.Request.Context(), billID, reviewerID, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bill})
}

func (s *Server) CrossUserDuplicates(c *gin.Context) {
	billID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	bill, err := s.verificationSvc.Bill(c.Request.Context(), billID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	matches, err := s.fraudSvc.CrossUserDuplicate(c.Request.Context(), bill.BillNumber, bill.MerchantID, bill.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": matches})
}

func (s *Server) UserFraudHistory(c *gin.Context) {
	userID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	history, err := s.fraudSvc.UserHistory(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}

func (s *Server) Stats(c *gin.Context) {
	stats, err := s.verificationSvc.Statistics(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// reviewerID reads the operator identity injected by the admin gateway.
func reviewerID(c *gin.Context) (snowflake.ID, error) {
	return parseID(c.GetHeader("X-Admin-ID"))
}
