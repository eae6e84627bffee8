package server

import (
	"errors"
	"fmt"

	"github.com/teemow/fittoken/internal/google"
	"github.com/teemow/fittoken/internal/instrumentation"
)

// Page titles and messages shown to the user.
const (
	titleConfiguration = "Error de Configuración"
	titleConnection    = "Error de Conexión"

	msgCredentialsMissing          = "Las variables CLIENT_ID o CLIENT_SECRET no están definidas."
	msgCredentialsMissingAuthorize = msgCredentialsMissing + " Por favor, revisa la configuración del despliegue."

	msgAuthorizationDenied = "El usuario denegó la autorización o el código no fue proporcionado. " +
		"Intenta de nuevo y acepta los permisos solicitados."

	msgUnknownTokenError = "Error desconocido al obtener el token."

	msgExchangeRejected = "Fallo al obtener refresh_token.\n\n" +
		"Mensaje de Google: %s\n\n" +
		"Asegúrate de que CLIENT_ID y CLIENT_SECRET sean correctos y que la URL de " +
		"redirección en Google Cloud Console coincida exactamente con: %s."

	msgExchangeFailed = "Fallo al intercambiar el código por tokens.\n\n" +
		"Referencia del incidente: %s"
)

// pageError is a failure of the web flow that is rendered as an error page.
// Title and Detail are user-facing; Err keeps the cause for logs only.
type pageError struct {
	Title    string
	Detail   string
	Outcome  string
	Incident string
	Err      error
}

// Error implements the error interface
func (e *pageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Outcome, e.Err)
	}
	return e.Outcome
}

// Unwrap returns the underlying error
func (e *pageError) Unwrap() error {
	return e.Err
}

func configurationError(detail string) *pageError {
	return &pageError{
		Title:   titleConfiguration,
		Detail:  detail,
		Outcome: instrumentation.OutcomeConfigMissing,
	}
}

func authorizationDeniedError() *pageError {
	return &pageError{
		Title:   titleConnection,
		Detail:  msgAuthorizationDenied,
		Outcome: instrumentation.OutcomeCodeMissing,
	}
}

// exchangeError classifies a failed code exchange. Google's own answer is shown
// to the user; anything else is replaced by an incident reference so internal
// details stay in the logs.
func exchangeError(err error, redirectURL, incident string) *pageError {
	var exErr *google.ExchangeError
	if errors.As(err, &exErr) {
		reason := exErr.Reason()
		if reason == "" {
			reason = msgUnknownTokenError
		}
		return &pageError{
			Title:   titleConnection,
			Detail:  fmt.Sprintf(msgExchangeRejected, reason, redirectURL),
			Outcome: instrumentation.OutcomeExchangeRejected,
			Err:     err,
		}
	}

	return &pageError{
		Title:    titleConnection,
		Detail:   fmt.Sprintf(msgExchangeFailed, incident),
		Outcome:  instrumentation.OutcomeExchangeFailed,
		Incident: incident,
		Err:      err,
	}
}
