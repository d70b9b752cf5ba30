// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package wallet

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/truyen/internal/platform/middleware"
	requestutil "github.com/taibuivan/truyen/internal/platform/request"
	"github.com/taibuivan/truyen/internal/platform/respond"
	"github.com/taibuivan/truyen/internal/platform/sec"
	"github.com/taibuivan/truyen/pkg/pagination"
)

// Handler implements the HTTP layer of the wallet.
type Handler struct {
	service *Service
}

// NewHandler constructs a new wallet [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the user and admin wallet endpoints.
func (handler *Handler) RegisterRoutes(router chi.Router) {

	// Own wallet
	router.Get("/wallet", handler.getWallet)
	router.Get("/wallet/transactions", handler.listTransactions)
	router.Post("/wallet/exchange", handler.exchange)

	// Administration
	router.Group(func(router chi.Router) {
		router.Use(middleware.RequireRole(sec.RoleAdmin))
		router.Post("/admin/wallets/{userID}/adjust", handler.adjust)
		router.Get("/admin/wallets/{userID}/reconcile", handler.reconcile)
	})
}

func (handler *Handler) getWallet(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	wallet, err := handler.service.Wallet(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, wallet)
}

func (handler *Handler) listTransactions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	filter := TransactionFilter{
		Currency: Currency(request.URL.Query().Get("currency")),
		Type:     TransactionType(request.URL.Query().Get("type")),
	}

	transactions, total, err := handler.service.Transactions(request.Context(), userID, filter, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, transactions, pagination.NewMeta(params, total))
}

type exchangeRequest struct {
	CashAmount int64 `json:"cash_amount"`
}

func (handler *Handler) exchange(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input exchangeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	receipt, err := handler.service.Exchange(request.Context(), userID, input.CashAmount)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, receipt)
}

func (handler *Handler) adjust(writer http.ResponseWriter, request *http.Request) {
	actorID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input Adjustment
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	input.UserID = requestutil.ID(request, "userID")
	input.ActorID = actorID

	transaction, err := handler.service.Adjust(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, transaction)
}

func (handler *Handler) reconcile(writer http.ResponseWriter, request *http.Request) {
	currency := Currency(request.URL.Query().Get("currency"))
	if currency == "" {
		currency = CurrencySpiritStone
	}

	report, err := handler.service.Reconcile(request.Context(), requestutil.ID(request, "userID"), currency)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, report)
}
