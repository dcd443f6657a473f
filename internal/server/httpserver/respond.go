package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/niangadou-pos/internal/errs"
	"github.com/and161185/niangadou-pos/internal/model"
)

// Operator-facing messages. The dashboard shows them verbatim.
const (
	msgInternal        = "Erreur interne du serveur"
	msgUnauthenticated = "Authentification requise"
	msgBadCredentials  = "Nom d'utilisateur ou mot de passe incorrect"
	msgRateLimited     = "Trop de tentatives, réessayez plus tard"
	msgBadJSON         = "Requête invalide"
	msgNotFound        = "Introuvable"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, model.ErrorResponse{Error: msg})
}

// writeError maps service errors to a status and an {"error": msg} body.
// Unexpected errors are logged and hidden from the caller.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		respondError(w, http.StatusBadRequest, detail(err, errs.ErrValidation))
	case errors.Is(err, errs.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, msgBadCredentials)
	case errors.Is(err, errs.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, msgRateLimited)
	case errors.Is(err, errs.ErrNotFound):
		respondError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, errs.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "Existe déjà")
	case errors.Is(err, errs.ErrOutOfStock):
		respondError(w, http.StatusConflict, unitMessage("Produit non disponible", err))
	default:
		log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, msgInternal)
	}
}

// detail strips the trailing sentinel text from a wrapped error.
func detail(err, sentinel error) string {
	return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
}

// unitMessage appends the IMEI carried by a stock error, if any.
func unitMessage(msg string, err error) string {
	var ue *errs.UnitError
	if errors.As(err, &ue) && ue.IMEI != "" {
		return msg + ": " + ue.IMEI
	}
	return msg
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}
