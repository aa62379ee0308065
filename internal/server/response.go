package server

import (
	"errors"
	"net/http"

	alertdomain "github.com/freightauditlabs/freightaudit/internal/alert/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	disputedomain "github.com/freightauditlabs/freightaudit/internal/dispute/domain"
	reportdomain "github.com/freightauditlabs/freightaudit/internal/report/domain"
	"github.com/gin-gonic/gin"
)

var ErrInvalidRequest = errors.New("invalid_request")

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

func AbortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, batchdomain.ErrBatchNotFound),
		errors.Is(err, disputedomain.ErrDiscrepancyNotFound),
		errors.Is(err, alertdomain.ErrAlertNotFound):
		status = http.StatusNotFound
	case errors.Is(err, batchdomain.ErrInvalidTransition),
		errors.Is(err, disputedomain.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, batchdomain.ErrInvalidBatch),
		errors.Is(err, disputedomain.ErrInvalidDiscrepancy),
		errors.Is(err, reportdomain.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
