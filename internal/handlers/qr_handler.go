package handlers

import (
	"net/http"

	"github.com/ruralpay/wallet/internal/models"
	"github.com/ruralpay/wallet/internal/services"
	"github.com/sirupsen/logrus"
)

type QRHandler struct {
	service   *services.QRService
	validator *services.ValidationHelper
	log       *logrus.Entry
}

func NewQRHandler(service *services.QRService, log *logrus.Entry) *QRHandler {
	return &QRHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

// GenerateQR generates a merchant QR code
// @Summary Generate QR Code
// @Description Generate a single-use merchant QR code
// @Tags QR
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,upiId=string} true "QR generation request"
// @Success 200 {object} object{success=bool,qrCode=string,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /qr/generate [post]
func (h *QRHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionID(w, r); !ok {
		return
	}

	var req struct {
		Name  string `json:"name" validate:"max=100"`
		UPIID string `json:"upiId" validate:"required,max=100"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	qrCode, qrImage, err := h.service.GenerateMerchantQR(r.Context(), models.Merchant{Name: req.Name, UPIID: req.UPIID})
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"qrCode":  qrCode,
		"qrImage": qrImage,
	})
}

// ProcessQR decodes a scanned QR code
// @Summary Process QR Code
// @Description Decode a scanned QR payload into the merchant it pays
// @Tags QR
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{qrData=string} true "QR processing request"
// @Success 200 {object} object{success=bool,data=models.Merchant}
// @Failure 400 {object} services.ErrorResponse
// @Router /qr/process [post]
func (h *QRHandler) ProcessQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QRData string `json:"qrData" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	merchant, err := h.service.PeekMerchant(r.Context(), req.QRData)
	if err != nil {
		sendServiceError(w, h.log, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    merchant,
	})
}
