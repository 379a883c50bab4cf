package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rcmarket/marketplace/internal/domain"
	ordersvc "github.com/rcmarket/marketplace/internal/service/order"
	"github.com/rcmarket/marketplace/internal/session"
)

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		invalid  *domain.ValidationError
		authErr  *session.AuthError
		internal *session.InternalError
		partial  *ordersvc.PartialOrderError
		header   *ordersvc.HeaderError
	)
	switch {
	case errors.As(err, &partial):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":       partial.Error(),
			"orderId":     partial.Order.ID,
			"partial":     true,
			"compensated": partial.Compensated,
		})
	case errors.As(err, &header):
		c.JSON(http.StatusBadGateway, gin.H{"error": header.Error()})
	case errors.Is(err, domain.ErrNotLoggedIn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrPasswordChangeNotImplemented):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrCurrentPasswordIncorrect):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Msg})
	case errors.As(err, &internal):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred"})
	case errors.As(err, &authErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": authErr.Message})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
