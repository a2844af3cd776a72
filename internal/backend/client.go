package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/constants"
	inErrors "github.com/Alturino/marketclub/internal/errors"
	inHttp "github.com/Alturino/marketclub/internal/http"
	"github.com/Alturino/marketclub/internal/otel"
)

// Envelope is the shape every backend response is wrapped in.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

// Requester is what the domain services need from the backend. *Client implements it.
type Requester interface {
	Do(c context.Context, method string, path string, creds auth.Credentials, body interface{}, out interface{}) error
	DoAsService(c context.Context, method string, path string, body interface{}, out interface{}) error
}

var _ Requester = (*Client)(nil)

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(cfg config.Backend) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Do sends body as json to path on behalf of creds and decodes the envelope data into out.
// out may be nil when the caller does not need the payload.
func (cl *Client) Do(
	c context.Context,
	method string,
	path string,
	creds auth.Credentials,
	body interface{},
	out interface{},
) error {
	return cl.do(c, method, path, creds.Apply, body, out)
}

// DoAsService authenticates with the api secret key instead of a user token. It is used for
// server to server calls such as order confirmation from the webhook.
func (cl *Client) DoAsService(
	c context.Context,
	method string,
	path string,
	body interface{},
	out interface{},
) error {
	return cl.do(c, method, path, func(r *http.Request) {
		r.Header.Set(inHttp.KEY_HEADER_AUTHORIZATION, inHttp.VALUE_BEARER_PREFIX+cl.secretKey)
	}, body, out)
}

func (cl *Client) do(
	c context.Context,
	method string,
	path string,
	authorize func(*http.Request),
	body interface{},
	out interface{},
) error {
	url := cl.baseURL + path
	c, span := otel.Tracer.Start(
		c,
		"Client Do",
		trace.WithAttributes(
			attribute.String(constants.KEY_REQUEST_METHOD, method),
			attribute.String(constants.KEY_URL, url),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Client Do").
		Str(constants.KEY_REQUEST_METHOD, method).
		Str(constants.KEY_URL, url).
		Logger()

	var reader io.Reader
	if body != nil {
		logger = logger.With().Str(constants.KEY_PROCESS, "marshaling request body").Logger()
		logger.Trace().Msg("marshaling request body")
		encoded, err := json.Marshal(body)
		if err != nil {
			err = fmt.Errorf("failed marshaling request body with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		reader = bytes.NewReader(encoded)
		logger.Trace().Msg("marshaled request body")
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "creating request").Logger()
	req, err := http.NewRequestWithContext(c, method, url, reader)
	if err != nil {
		err = fmt.Errorf("failed creating request with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	req.Header.Set(inHttp.KEY_HEADER_CONTENT_TYPE, inHttp.VALUE_HEADER_APPLICATION_JSON)
	authorize(req)

	logger = logger.With().Str(constants.KEY_PROCESS, "sending request").Logger()
	logger.Debug().Msg("sending request")
	resp, err := cl.httpClient.Do(req)
	if err != nil {
		err = inErrors.NewNetworkError("backend unreachable", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer resp.Body.Close()
	logger = logger.With().Int(constants.KEY_STATUS_CODE, resp.StatusCode).Logger()
	logger.Debug().Msg("sent request")

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding response").Logger()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		err = inErrors.NewNetworkError("failed reading backend response", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	envelope := Envelope{}
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || (decodeErr == nil && !envelope.Success) {
		err = mapFailure(resp.StatusCode, envelope)
		otel.RecordError(err, span)
		logger.Warn().Err(err).Str(constants.KEY_RESPONSE, string(raw)).Msg(err.Error())
		return err
	}
	if decodeErr != nil {
		err = inErrors.NewNetworkError("malformed backend response", decodeErr)
		otel.RecordError(err, span)
		logger.Error().Err(err).Str(constants.KEY_RESPONSE, string(raw)).Msg(err.Error())
		return err
	}

	if out != nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		err = json.Unmarshal(envelope.Data, out)
		if err != nil {
			err = inErrors.NewNetworkError("malformed backend data", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
	}
	logger.Trace().Msg("decoded response")
	return nil
}

func mapFailure(statusCode int, envelope Envelope) error {
	message := envelope.Message
	if message == "" {
		message = http.StatusText(statusCode)
	}
	if envelope.Code == inErrors.CODE_OUT_OF_STOCK {
		return inErrors.NewOutOfStockError(message)
	}
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return inErrors.NewValidationError(message)
	case http.StatusConflict:
		return inErrors.NewOutOfStockError(message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return inErrors.NewAuthError(message)
	case http.StatusNotFound:
		return inErrors.NewNotFoundError(message)
	}
	if statusCode >= 200 && statusCode <= 299 {
		// 2xx with success=false
		return inErrors.NewValidationError(message)
	}
	return inErrors.NewNetworkError(
		message,
		fmt.Errorf("backend answered status=%d", statusCode),
	)
}
