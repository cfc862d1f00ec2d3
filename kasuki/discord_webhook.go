package kasuki

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// webhookResponseTimeout is how long the webhook endpoint waits for a
// command's initial response before acknowledging the interaction with
// a deferred response. Discord requires a response within 3 seconds.
var webhookResponseTimeout = 2500 * time.Millisecond

// webhookResponder hands the first interaction response to the HTTP
// request that delivered the interaction, as long as that request is
// still waiting on one
type webhookResponder struct {
	mu        sync.Mutex
	closed    bool
	deferred  bool
	responses chan *discordgo.InteractionResponse
}

func newWebhookResponder() *webhookResponder {
	return &webhookResponder{responses: make(chan *discordgo.InteractionResponse, 1)}
}

// offer passes response to the waiting request, returning false if the
// request has already been answered
func (r *webhookResponder) offer(response *discordgo.InteractionResponse) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.closed = true
	r.responses <- response
	return true
}

// close stops accepting responses. If deferred is true, the request is
// about to acknowledge the interaction with a deferred response.
// If a response was offered before close, it's returned.
func (r *webhookResponder) close(deferred bool) *discordgo.InteractionResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	select {
	case resp := <-r.responses:
		return resp
	default:
		r.deferred = deferred
		return nil
	}
}

func (r *webhookResponder) wasDeferred() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deferred
}

// WebhookHandler is a handler for Discord interactions received via webhook.
// See: https://discord.com/developers/docs/interactions/overview#setting-up-an-endpoint-validating-security-request-headers
//
// The initial response is written as the HTTP response body. Anything
// after that (or an initial response sent after the endpoint had to
// defer) goes through the REST API, via the embedded handler.
//
//nolint:lll  // can't split link
type WebhookHandler struct {
	responder *webhookResponder
	InteractionHandler
}

func (WebhookHandler) InteractionReceiveMethod() DiscordInteractionReceiveMethod {
	return discordInteractionReceiveMethodWebhook
}

func (w WebhookHandler) Respond(
	ctx context.Context,
	response *discordgo.InteractionResponse,
) error {
	// files can't be sent in a JSON response body
	if response.Data == nil || len(response.Data.Files) == 0 {
		if w.responder.offer(response) {
			return nil
		}
	}
	if !w.responder.wasDeferred() {
		return w.InteractionHandler.Respond(ctx, response)
	}

	// the endpoint already acknowledged the interaction, so the
	// response replaces the deferred message
	if response.Data == nil ||
		response.Type == discordgo.InteractionResponseDeferredChannelMessageWithSource {
		return nil
	}
	_, err := w.InteractionHandler.Edit(
		ctx,
		&discordgo.WebhookEdit{
			Content:         &response.Data.Content,
			Embeds:          &response.Data.Embeds,
			Files:           response.Data.Files,
			AllowedMentions: response.Data.AllowedMentions,
		},
	)
	return err
}

// webhookReceiveHandler returns a [gin.HandlerFunc] for handling Discord
// webhook interactions. The interaction runs in its own goroutine, and
// the request returns as soon as it responds, or once
// [webhookResponseTimeout] passes.
func webhookReceiveHandler(b *Bot) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, _ := c.Get(xRequestIDHeader)
		logger := ginContextLogger(c).With(
			slog.Group(
				"webhook_request",
				"remote_addr", c.Request.RemoteAddr,
				"remote_ip", c.RemoteIP(),
				xRequestIDHeader, requestID,
			),
		)
		// the interaction may outlive the request
		runCtx := WithLogger(context.WithoutCancel(c.Request.Context()), logger)

		defer func() {
			_ = c.Request.Body.Close()
		}()
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.ErrorContext(runCtx, "error getting raw data", tint.Err(err))
			c.JSON(http.StatusInternalServerError, httpError{Error: "error getting raw data"})
			return
		}

		var interaction discordgo.InteractionCreate
		if e := json.Unmarshal(body, &interaction); e != nil {
			logger.ErrorContext(runCtx, "error unmarshalling body", tint.Err(e))
			c.JSON(http.StatusBadRequest, httpError{Error: "error unmarshalling body"})
			return
		}

		getHandler := b.getInteractionHandlerFunc
		if getHandler == nil {
			getHandler = b.newGatewayHandler
		}
		responder := newWebhookResponder()
		handler := WebhookHandler{
			responder:          responder,
			InteractionHandler: getHandler(runCtx, &interaction),
		}

		finished := make(chan struct{})
		b.runtimeWG.Add(1)
		go func() {
			defer b.runtimeWG.Done()
			defer close(finished)
			b.handleInteraction(runCtx, handler)
		}()

		timer := time.NewTimer(webhookResponseTimeout)
		defer timer.Stop()

		select {
		case resp := <-responder.responses:
			c.JSON(http.StatusOK, resp)
		case <-finished:
			if resp := responder.close(false); resp != nil {
				c.JSON(http.StatusOK, resp)
				return
			}
			logger.ErrorContext(runCtx, "interaction finished without a response")
			c.JSON(http.StatusInternalServerError, httpError{Error: "no response"})
		case <-timer.C:
			if resp := responder.close(true); resp != nil {
				c.JSON(http.StatusOK, resp)
				return
			}
			logger.WarnContext(runCtx, "interaction response timed out, deferring")
			c.JSON(
				http.StatusOK,
				discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
				},
			)
		}
	}
}

// discordRequestAuthenticationMiddleware is a middleware for verifying Discord
// webhook requests.
// See: https://discord.com/developers/docs/interactions/overview#setting-up-an-endpoint-validating-security-request-headers
//
//nolint:lll // can't split link
func discordRequestAuthenticationMiddleware(publicKey ed25519.PublicKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := ginContextLogger(c)
		if !verifyRequest(c.Request, publicKey) {
			logger.WarnContext(c, "invalid signature")
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpError{Error: "invalid signature"})
			return
		}
		c.Next()
	}
}

// verifyRequest verifies the authenticity of a Discord webhook request.
//
// This function checks the request's signature and timestamp headers to validate
// the request. It reads the request body and verifies the signature using the
// provided public key. The body is restored so later handlers can read it.
func verifyRequest(r *http.Request, key ed25519.PublicKey) bool {
	var msg bytes.Buffer

	signature := r.Header.Get("X-Signature-Ed25519")
	if signature == "" {
		return false
	}

	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	if len(sig) != ed25519.SignatureSize || sig[63]&224 != 0 {
		return false
	}

	timestamp := r.Header.Get("X-Signature-Timestamp")
	if timestamp == "" {
		return false
	}

	msg.WriteString(timestamp)

	defer func() {
		_ = r.Body.Close()
	}()
	var body bytes.Buffer

	defer func() {
		r.Body = io.NopCloser(&body)
	}()

	_, err = io.Copy(&msg, io.TeeReader(r.Body, &body))
	if err != nil {
		return false
	}

	return ed25519.Verify(key, msg.Bytes(), sig)
}
