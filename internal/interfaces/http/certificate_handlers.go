package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobpal/jobpal-server/internal/application/service"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	domainwf "github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// LineItemRequest is one row of the certificate request form
type LineItemRequest struct {
	CertificateID string `json:"certificateId" binding:"required"`
	Count         int    `json:"count" binding:"min=0,max=10"`
}

// MailingAddressRequest carries the recipient fields for mail delivery
type MailingAddressRequest struct {
	LastName      string `json:"lastName" binding:"required"`
	FirstName     string `json:"firstName" binding:"required"`
	LastNameKana  string `json:"lastNameKana" binding:"omitempty,kana"`
	FirstNameKana string `json:"firstNameKana" binding:"omitempty,kana"`
	ZipCode       string `json:"zipCode" binding:"required,len=7,numeric"`
	Address       string `json:"address" binding:"required"`
	AfterAddress  string `json:"afterAddress"`
}

// CertificateRequestPayload carries the fields of an issuance request
type CertificateRequestPayload struct {
	CertificateList []LineItemRequest      `json:"certificateList" binding:"required,len=4"`
	Media           string                 `json:"media" binding:"required"`
	Mailing         *MailingAddressRequest `json:"mailing"`
}

func (r CertificateRequestPayload) toInput() service.NewCertificateInput {
	items := make([]entity.CertificateLineItem, 0, len(r.CertificateList))
	for _, item := range r.CertificateList {
		items = append(items, entity.CertificateLineItem{
			CertificateID: item.CertificateID,
			Count:         item.Count,
		})
	}

	input := service.NewCertificateInput{
		CertificateList: items,
		Media:           entity.Media(r.Media),
	}
	if r.Mailing != nil {
		input.Mailing = &entity.MailingAddress{
			LastName:      r.Mailing.LastName,
			FirstName:     r.Mailing.FirstName,
			LastNameKana:  r.Mailing.LastNameKana,
			FirstNameKana: r.Mailing.FirstNameKana,
			ZipCode:       r.Mailing.ZipCode,
			Address:       r.Mailing.Address,
			AfterAddress:  r.Mailing.AfterAddress,
		}
	}
	return input
}

// LineItemResponse is one stored form row
type LineItemResponse struct {
	CertificateID   string `json:"certificateId"`
	CertificateName string `json:"certificateName,omitempty"`
	Count           int    `json:"count"`
}

// MailingAddressResponse is the stored mailing address
type MailingAddressResponse struct {
	LastName      string `json:"lastName"`
	FirstName     string `json:"firstName"`
	LastNameKana  string `json:"lastNameKana,omitempty"`
	FirstNameKana string `json:"firstNameKana,omitempty"`
	ZipCode       string `json:"zipCode"`
	Address       string `json:"address"`
	AfterAddress  string `json:"afterAddress,omitempty"`
}

// CertificateResponse represents an issuance request in API responses
type CertificateResponse struct {
	CertificateIssueID string                  `json:"certificateIssueId"`
	UserID             string                  `json:"userId"`
	OfficeUserID       string                  `json:"officeUserId,omitempty"`
	CertificateList    []LineItemResponse      `json:"certificateList"`
	Media              string                  `json:"media"`
	State              string                  `json:"state"`
	Mailing            *MailingAddressResponse `json:"mailing,omitempty"`
	TotalAmount        int                     `json:"totalAmount"`
	ReNotify           bool                    `json:"reNotify"`
	CreatedAt          string                  `json:"createdAt"`
	UpdatedAt          string                  `json:"updatedAt"`
}

// BreakdownResponse is the fee breakdown of a request
type BreakdownResponse struct {
	CertificateFee int `json:"certificateFee"`
	ShippingFee    int `json:"shippingFee"`
	TotalAmount    int `json:"totalAmount"`
}

// CertificateDetailResponse is a request with its breakdown and history
type CertificateDetailResponse struct {
	Request   CertificateResponse `json:"request"`
	Breakdown BreakdownResponse   `json:"breakdown"`
	History   []HistoryResponse   `json:"history"`
}

func toCertificateResponse(r *entity.CertificateRequest) CertificateResponse {
	items := make([]LineItemResponse, 0, len(r.CertificateList))
	for _, item := range r.CertificateList {
		items = append(items, LineItemResponse{
			CertificateID:   item.CertificateID,
			CertificateName: item.CertificateName,
			Count:           item.Count,
		})
	}

	resp := CertificateResponse{
		CertificateIssueID: r.CertificateIssueID,
		UserID:             r.UserID,
		OfficeUserID:       r.OfficeUserID,
		CertificateList:    items,
		Media:              string(r.Media),
		State:              string(r.State),
		TotalAmount:        r.TotalAmount,
		ReNotify:           r.ReNotifyFlag,
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          r.UpdatedAt.Format(time.RFC3339),
	}
	if r.Mailing != nil {
		resp.Mailing = &MailingAddressResponse{
			LastName:      r.Mailing.LastName,
			FirstName:     r.Mailing.FirstName,
			LastNameKana:  r.Mailing.LastNameKana,
			FirstNameKana: r.Mailing.FirstNameKana,
			ZipCode:       r.Mailing.ZipCode,
			Address:       r.Mailing.Address,
			AfterAddress:  r.Mailing.AfterAddress,
		}
	}
	return resp
}

// CreateCertificate handles POST /api/certificates
func (h *Handlers) CreateCertificate(c *gin.Context) {
	var req CertificateRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid certificate payload")
		return
	}

	request, err := h.certificateService.Submit(c.Request.Context(), sessionFrom(c), req.toInput())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, toCertificateResponse(request))
}

// ListCertificates handles GET /api/certificates
func (h *Handlers) ListCertificates(c *gin.Context) {
	includeFinished := c.Query("includeFinished") == "true"

	requests, err := h.certificateService.List(c.Request.Context(), sessionFrom(c), includeFinished)
	if err != nil {
		h.failErr(c, err)
		return
	}

	out := make([]CertificateResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, toCertificateResponse(r))
	}
	ok(c, out)
}

// GetCertificate handles GET /api/certificates/:id
func (h *Handlers) GetCertificate(c *gin.Context) {
	detail, err := h.certificateService.GetDetail(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}

	ok(c, CertificateDetailResponse{
		Request: toCertificateResponse(detail.Request),
		Breakdown: BreakdownResponse{
			CertificateFee: detail.Breakdown.CertificateFee,
			ShippingFee:    detail.Breakdown.ShippingFee,
			TotalAmount:    detail.Breakdown.TotalAmount,
		},
		History: toHistoryResponses(detail.History),
	})
}

// UpdateCertificate handles PUT /api/certificates/:id
func (h *Handlers) UpdateCertificate(c *gin.Context) {
	var req CertificateRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid certificate payload")
		return
	}

	request, err := h.certificateService.Update(c.Request.Context(), sessionFrom(c), c.Param("id"), req.toInput())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, toCertificateResponse(request))
}

// DeleteCertificate handles DELETE /api/certificates/:id
func (h *Handlers) DeleteCertificate(c *gin.Context) {
	if err := h.certificateService.Delete(c.Request.Context(), sessionFrom(c), c.Param("id")); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, nil)
}

// ResubmitCertificate handles POST /api/certificates/:id/resubmit
func (h *Handlers) ResubmitCertificate(c *gin.Context) {
	request, err := h.certificateService.Resubmit(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, toCertificateResponse(request))
}

// TransitionCertificate handles PUT /api/certificates/:id/transition
func (h *Handlers) TransitionCertificate(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid transition payload")
		return
	}

	request, err := h.engine.TransitionCertificate(c.Request.Context(), sessionFrom(c),
		req.toCommand(c.Param("id")))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, toCertificateResponse(request))
}

// CertificateActions handles GET /api/certificates/:id/actions
func (h *Handlers) CertificateActions(c *gin.Context) {
	actions, err := h.engine.PermittedCertificateActions(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}

	out := make([]ActionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, ActionResponse{
			Action: int(a),
			Name:   domainwf.ActionName(domainwf.KindCertificate, a),
		})
	}
	ok(c, out)
}

// RateResponse is one row of the published rate table
type RateResponse struct {
	CertificateID string `json:"certificateId"`
	Fee           int    `json:"fee"`
	Weight        int    `json:"weight"`
}

// PostalRatesResponse is the published rate table
type PostalRatesResponse struct {
	CertificateRates []RateResponse `json:"certificateRates"`
	PostalMaxWeight  int            `json:"postalMaxWeight"`
	PostalFee        int            `json:"postalFee"`
}

// GetPostalRates handles GET /api/postal-rates
func (h *Handlers) GetPostalRates(c *gin.Context) {
	rates, err := h.certificateService.GetPostalRates(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}

	out := PostalRatesResponse{
		PostalMaxWeight: rates.PostalMaxWeight,
		PostalFee:       rates.PostalFee,
	}
	for _, rate := range rates.CertificateRates {
		out.CertificateRates = append(out.CertificateRates, RateResponse{
			CertificateID: rate.CertificateID,
			Fee:           rate.Fee,
			Weight:        rate.Weight,
		})
	}
	ok(c, out)
}
