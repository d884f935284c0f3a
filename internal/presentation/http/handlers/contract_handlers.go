package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/politifan/school-peaky-minds/internal/application/services"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
)

const contractNotFoundMessage = "Ссылка недействительна или договор не найден."

// sendErrorMessages are shown back to the visitor when a send is refused.
var sendErrorMessages = map[error]string{
	services.ErrNoRecipient:      "Укажите email для отправки",
	services.ErrInvalidEmail:     "Укажите корректный email",
	services.ErrTelegramUnlinked: "Telegram не привязан",
	services.ErrUnknownChannel:   "Неизвестный канал",
}

// ContractHandlers serves the public contract page actions.
type ContractHandlers struct {
	contractService *services.ContractService
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// NewContractHandlers creates contract handlers with injected dependencies
func NewContractHandlers(contractService *services.ContractService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ContractHandlers {
	return &ContractHandlers{
		contractService: contractService,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// GetContract handles GET /contract/:token
func (h *ContractHandlers) GetContract(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("get_contract_request", "contract")
	defer marker.Complete()
	h.logger.Records().Debug("Received contract view request", "method", c.Request.Method, "path", c.Request.URL.Path)

	view, err := h.contractService.View(c.Request.Context(), c.Param("token"))
	if errors.Is(err, services.ErrContractNotFound) {
		marker.SetSuccess(false)
		c.JSON(http.StatusNotFound, gin.H{"error": contractNotFoundMessage})
		return
	}
	if err != nil {
		h.logger.Records().Error("Failed to load contract", "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, view)
}

// PostSend handles POST /contract/:token/send
func (h *ContractHandlers) PostSend(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_contract_send", "contract")
	defer marker.Complete()
	h.logger.Records().Debug("Received contract send request", "method", c.Request.Method, "path", c.Request.URL.Path)

	channel, err := h.contractService.Send(c.Request.Context(), c.Param("token"), c.PostForm("channel"), c.PostForm("email"))
	if err != nil {
		marker.SetError(err)
		if errors.Is(err, services.ErrContractNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": contractNotFoundMessage})
			return
		}
		for sentinel, message := range sendErrorMessages {
			if errors.Is(err, sentinel) {
				c.JSON(http.StatusBadRequest, gin.H{"error": message})
				return
			}
		}
		h.logger.Records().Error("Contract delivery failed", "error", err.Error(), "duration", time.Since(start))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Ошибка отправки"})
		return
	}

	h.logger.Records().Info("Contract delivered", "channel", channel, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "channel": channel, "message": "Договор отправлен"})
}

// PostSign handles POST /contract/:token/sign
func (h *ContractHandlers) PostSign(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_contract_sign", "contract")
	defer marker.Complete()

	err := h.contractService.Sign(c.Request.Context(), c.Param("token"))
	if errors.Is(err, services.ErrContractNotFound) {
		marker.SetSuccess(false)
		c.JSON(http.StatusNotFound, gin.H{"error": contractNotFoundMessage})
		return
	}
	if err != nil {
		h.logger.Records().Error("Failed to sign contract", "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Договор подтвержден"})
}
