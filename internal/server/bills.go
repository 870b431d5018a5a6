package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	verificationdomain "github.com/rupeeback/verify/internal/verification/domain"
	"go.uber.org/zap"
)

// maxImageSize bounds receipt uploads at 10 MiB.
const maxImageSize = 10 << 20

func (s *Server) SubmitBill(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if res, ok := s.uploadLimiter.Allow(c.Request.Context(), userID); !ok {
		c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	merchantID, err := parseID(c.PostForm("merchant_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	amount, err := strconv.ParseFloat(c.PostForm("amount"), 64)
	if err != nil || amount <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	billDate, err := parseBillDate(c.PostForm("bill_date"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil || fileHeader.Size > maxImageSize {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	bill, err := s.verificationSvc.Submit(c.Request.Context(), verificationdomain.Submission{
		UserID:           userID,
		MerchantID:       merchantID,
		Amount:           amount,
		BillDate:         billDate,
		BillNumber:       strings.TrimSpace(c.PostForm("bill_number")),
		Notes:            strings.TrimSpace(c.PostForm("notes")),
		Image:            file,
		ImageContentType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	queued := s.queue.Enqueue(bill.ID)
	if !queued {
		s.log.Warn("bill accepted but not queued", zap.Int64("bill_id", int64(bill.ID)))
	}

	c.JSON(http.StatusAccepted, gin.H{"data": bill, "queued": queued})
}

func (s *Server) GetBill(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{"data": bill})
}

func (s *Server) ResubmitBill(c *gin.Context) {
	userID, err := requestUserID(c)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	billID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil || fileHeader.Size > maxImageSize {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	bill, err := s.verificationSvc.Resubmit(c.Request.Context(), billID, userID,
		file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	queued := s.queue.Enqueue(bill.ID)
	if !queued {
		s.log.Warn("resubmission accepted but not queued", zap.Int64("bill_id", int64(bill.ID)))
	}

	c.JSON(http.StatusAccepted, gin.H{"data": bill, "queued": queued})
}

// requestUserID reads the caller identity injected by the API gateway.
func requestUserID(c *gin.Context) (snowflake.ID, error) {
	return parseID(c.GetHeader("X-User-ID"))
}

func parseBillDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
