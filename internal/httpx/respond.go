package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
)

var validate = validator.New()

type errorDetail struct {
	Message      string   `json:"message"`
	ProductID    string   `json:"product_id,omitempty"`
	PartID       string   `json:"part_id,omitempty"`
	VariationIDs []string `json:"variation_ids,omitempty"`
}

type ErrorResponse struct {
	ErrorKind string      `json:"errorKind"`
	Detail    errorDetail `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	code := e.HTTPStatus()
	log := zerolog.Ctx(r.Context())
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("path", r.URL.Path).Str("code", e.Code).Msg("request rejected")
	}

	msg := e.Msg
	if e.Kind == apperr.KindInternal {
		msg = "internal error"
	}
	writeJSON(w, code, ErrorResponse{
		ErrorKind: e.Code,
		Detail: errorDetail{
			Message:      msg,
			ProductID:    e.ProductID,
			PartID:       e.PartID,
			VariationIDs: e.VariationIDs,
		},
	})
}

// bind decodes a JSON body into dst and validates it.
func bind(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.BadRequest(fmt.Sprintf("invalid json: %v", err))
	}
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return apperr.BadRequest("invalid fields: " + strings.Join(fields, ", "))
	}
	return apperr.BadRequest(err.Error())
}
