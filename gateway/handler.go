// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/luxfi/log"

	"github.com/luxfi/transform"
	"github.com/luxfi/transform/api"
)

// RegisterRoutes mounts the execute endpoint on r
func RegisterRoutes(r *mux.Router, logger log.Logger, exec Executor) {
	r.Handle(api.ExecutePath, NewHandler(logger, exec)).Methods(http.MethodPost)
}

// NewHandler returns the execute endpoint handler
func NewHandler(logger log.Logger, exec Executor) http.Handler {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.ExecuteRequest
		body := http.MaxBytesReader(w, r.Body, api.MaxRequestSize)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: empty body", transform.ErrInvalidRequest)
			} else {
				err = fmt.Errorf("%w: %w", transform.ErrInvalidRequest, err)
			}
			logger.Debug("Could not decode request body", log.Err(err))
			api.WriteJSONError(logger, w, err)
			return
		}

		receipt, err := exec.Execute(r.Context(), Request{
			Sender: req.Sender,
			Wallet: req.Wallet,
			Msg:    &req.Msg,
		})
		if err != nil {
			logger.Debug("Execute rejected",
				log.Stringer("wallet", req.Wallet),
				log.Err(err),
			)
			api.WriteJSONError(logger, w, err)
			return
		}
		api.WriteJSON(logger, w, http.StatusOK, api.NewReceipt(receipt))
	})
}
