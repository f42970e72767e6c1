// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/ratesync/internal/platform/apperr"
	"github.com/taibuivan/ratesync/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/ratesync/internal/platform/request"
	"github.com/taibuivan/ratesync/internal/platform/respond"
)

// Handler exposes the list session of the authenticated user over HTTP.
type Handler struct {
	registry *Registry
	stream   StreamOptions
}

// NewHandler builds a handler. Zero stream durations take their defaults.
func NewHandler(registry *Registry, stream StreamOptions) *Handler {
	defaults := DefaultStreamOptions()
	if stream.PingInterval <= 0 {
		stream.PingInterval = defaults.PingInterval
	}
	if stream.WriteTimeout <= 0 {
		stream.WriteTimeout = defaults.WriteTimeout
	}
	return &Handler{registry: registry, stream: stream}
}

// # Payloads

type kindRequest struct {
	Kind Kind `json:"kind"`
}

type statusRequest struct {
	Status Status `json:"status"`
}

type sortRequest struct {
	Key       SortKey `json:"key"`
	Ascending *bool   `json:"ascending"`
}

type searchRequest struct {
	Term string `json:"term"`
}

type contentRequest struct {
	Kind    Kind    `json:"kind"`
	Content Content `json:"content"`
}

type noticeResponse struct {
	Notice string `json:"notice"`
}

// mutationResponse is returned for every mutation, failed or not, so the
// client always gets the notice and the restored state.
type mutationResponse struct {
	Operation Operation        `json:"operation"`
	Notice    string           `json:"notice,omitempty"`
	Error     *apperr.AppError `json:"error,omitempty"`
	Snapshot  Snapshot         `json:"snapshot"`
}

// # Routes

// RegisterRoutes mounts the request/response endpoints. The snapshot stream is
// served by [Handler.Stream] and mounted separately because it outlives the
// request timeout.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.getSnapshot)
	router.Post("/pages", handler.loadNextPage)
	router.Post("/refresh", handler.refresh)
	router.Post("/notice", handler.consumeNotice)

	// View parameters
	router.Put("/kind", handler.setKind)
	router.Put("/status", handler.setStatus)
	router.Put("/sort", handler.setSort)
	router.Put("/search", handler.setSearch)

	// Selection and staged edits
	router.Route("/selection", func(selection chi.Router) {
		selection.Put("/", handler.selectContent)
		selection.Put("/{id}", handler.selectEntry)
		selection.Delete("/", handler.deselect)
		selection.Patch("/draft", handler.stage)

		selection.Post("/create", handler.mutation(OpCreate))
		selection.Post("/update", handler.mutation(OpUpdate))
		selection.Post("/increment", handler.mutation(OpIncrement))
		selection.Post("/delete", handler.mutation(OpDelete))
		selection.Post("/transfer", handler.transfer)
	})
}

// Routes returns a router with every request/response endpoint.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

// # Helpers

// session resolves the list of the authenticated caller.
func (handler *Handler) session(request *http.Request) (*List, error) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		return nil, err
	}
	return handler.registry.Acquire(request.Context(), Session{
		UserID: claims.UserID,
		Token:  claims.UpstreamToken,
	}), nil
}

// respondSnapshot writes the state after a successful change.
func respondSnapshot(writer http.ResponseWriter, request *http.Request, list *List, status int) {
	snapshot, err := list.Snapshot(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.JSON(writer, status, respond.SuccessEnvelope{Data: snapshot})
}

// change runs one state-changing call and answers with the new snapshot.
func (handler *Handler) change(writer http.ResponseWriter, request *http.Request, status int, apply func(context.Context, *List) error) {
	list, err := handler.session(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := apply(request.Context(), list); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respondSnapshot(writer, request, list, status)
}

// # Loading

func (handler *Handler) getSnapshot(writer http.ResponseWriter, request *http.Request) {
	handler.change(writer, request, http.StatusOK, func(context.Context, *List) error { return nil })
}

func (handler *Handler) loadNextPage(writer http.ResponseWriter, request *http.Request) {
	handler.change(writer, request, http.StatusAccepted, func(context context.Context, list *List) error {
		return list.LoadNextPage(context)
	})
}

func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	handler.change(writer, request, http.StatusAccepted, func(context context.Context, list *List) error {
		return list.Refresh(context)
	})
}

func (handler *Handler) consumeNotice(writer http.ResponseWriter, request *http.Request) {
	list, err := handler.session(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	notice, err := list.ConsumeNotice(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, noticeResponse{Notice: notice})
}

// # View Parameters

func (handler *Handler) setKind(writer http.ResponseWriter, request *http.Request) {
	var input kindRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.change(writer, request, http.StatusOK, func(context context.Context, list *List) error {
		return list.SetKind(context, input.Kind)
	})
}

func (handler *Handler) setStatus(writer http.ResponseWriter, request *http.Request) {
	var input statusRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.change(writer, request, http.StatusOK, func(context context.Context, list *List) error {
		return list.SetStatus(context, input.Status)
	})
}

func (handler *Handler) setSort(writer http.ResponseWriter, request *http.Request) {
	var input sortRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.change(writer, request, http.StatusOK, func(context context.Context, list *List) error {
		if input.Key != "" {
			if err := list.SetSortKey(context, input.Key); err != nil {
				return err
			}
		}
		if input.Ascending != nil {
			return list.SetSortAscending(context, *input.Ascending)
		}
		return nil
	})
}

// setSearch answers before the term applies; the stream carries the result.
func (handler *Handler) setSearch(writer http.ResponseWriter, request *http.Request) {
	var input searchRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.change(writer, request, http.StatusAccepted, func(_ context.Context, list *List) error {
		list.SetSearchTerm(input.Term)
		return nil
	})
}

// # Selection

func (handler *Handler) selectEntry(writer http.ResponseWriter, request *http.Request) {
	entryID, err := requestutil.Int64Param(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.change(writer, request, http.StatusOK, func(context context.Context, list *List) error {
		return list.Select(context, entryID)
	})
}

func (handler *Handler) selectContent(writer http.ResponseWriter, request *http.Request) {
	var input contentRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.change(writer, request, http.StatusOK, func(context context.Context, list *List) error {
		return list.SelectContent(context, input.Kind, input.Content)
	})
}

func (handler *Handler) deselect(writer http.ResponseWriter, request *http.Request) {
	handler.change(writer, request, http.StatusOK, func(context context.Context, list *List) error {
		return list.Deselect(context)
	})
}

func (handler *Handler) stage(writer http.ResponseWriter, request *http.Request) {
	var input Draft
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.change(writer, request, http.StatusOK, func(context context.Context, list *List) error {
		return list.Stage(context, input)
	})
}

// # Mutations

func (handler *Handler) mutation(operation Operation) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		handler.mutate(writer, request, func(context context.Context, list *List) (Outcome, error) {
			switch operation {
			case OpCreate:
				return list.Create(context)
			case OpUpdate:
				return list.Update(context)
			case OpIncrement:
				return list.Increment(context)
			default:
				return list.Delete(context)
			}
		})
	}
}

func (handler *Handler) transfer(writer http.ResponseWriter, request *http.Request) {
	var input statusRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.mutate(writer, request, func(context context.Context, list *List) (Outcome, error) {
		return list.Transfer(context, input.Status)
	})
}

/*
mutate runs a mutation and renders its outcome.

Description: A rejected mutation is still a complete answer: the status code
comes from the error, and the body carries the notice and the restored state.
Errors that prevent the mutation from running at all use the plain error envelope.
*/
func (handler *Handler) mutate(writer http.ResponseWriter, request *http.Request, run func(context.Context, *List) (Outcome, error)) {
	list, err := handler.session(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := run(request.Context(), list)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	snapshot, err := list.Snapshot(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	response := mutationResponse{
		Operation: outcome.Operation,
		Notice:    outcome.Notice,
		Snapshot:  snapshot,
	}
	if !outcome.Failed() {
		respond.OK(writer, response)
		return
	}

	appErr := apperr.As(outcome.Err)
	if appErr == nil {
		appErr = apperr.BadGateway("The tracking service failed", outcome.Err)
	}
	ctxutil.Logger(request.Context()).Warn("rate_mutation_rejected",
		slog.String("operation", string(outcome.Operation)),
		slog.String("code", appErr.Code),
		slog.Any("error", outcome.Err),
	)

	response.Error = appErr
	respond.JSON(writer, appErr.HTTPStatus, respond.SuccessEnvelope{Data: response})
}
