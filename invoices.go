package main

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shieldnetlabs/shieldnet_backend/analyzer"
	"github.com/shieldnetlabs/shieldnet_backend/config"
	"github.com/shieldnetlabs/shieldnet_backend/utils"
	"github.com/shieldnetlabs/shieldnet_backend/workflow"
	"github.com/sirupsen/logrus"
)

func analyzerOracle(ctx context.Context) (analyzer.Oracle, error) {
	return analyzer.NewGeminiOracle(ctx, config.OracleModel(), config.OracleTimeout())
}

// statusForError maps a pipeline failure to its HTTP status.
func statusForError(err error) int {
	switch utils.KindOf(err) {
	case utils.ErrKindInvalidInput:
		return http.StatusBadRequest
	case utils.ErrKindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case utils.ErrKindOracleTimeout:
		return http.StatusGatewayTimeout
	case utils.ErrKindOracleFailure, utils.ErrKindMalformedAssessment:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// readUpload extracts the multipart document. The size check runs against
// the declared size before the body is read, so oversized uploads are
// rejected without buffering them.
func readUpload(c *gin.Context) (string, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, utils.NewAppErrorf(utils.ErrKindInvalidInput, "missing multipart field %q", "file")
	}
	if err := workflow.ValidateUpload(header.Filename, header.Size); err != nil {
		return "", nil, err
	}

	f, err := header.Open()
	if err != nil {
		return "", nil, utils.NewAppErrorf(utils.ErrKindInvalidInput, "open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, workflow.MaxUploadBytes+1))
	if err != nil {
		return "", nil, utils.NewAppErrorf(utils.ErrKindInvalidInput, "read upload: %w", err)
	}
	if int64(len(data)) > workflow.MaxUploadBytes {
		return "", nil, utils.NewAppErrorf(utils.ErrKindPayloadTooLarge, "file size exceeds 10MB limit")
	}
	return header.Filename, data, nil
}

func analyzeInvoiceHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileName, data, err := readUpload(c)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		result, err := a.pipeline.Analyze(c.Request.Context(), fileName, data)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				// Client went away; nothing to answer.
				c.Abort()
				return
			}
			config.LogError(a.logger, "server", "analyzeInvoiceHandler", "pipeline.Analyze", fileName, err)
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// analyzeInvoiceStreamHandler runs the analysis with server-sent events.
// Validation failures answer as plain JSON before the stream starts; all
// later failures arrive as an error event on the open stream.
func analyzeInvoiceStreamHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileName, data, err := readUpload(c)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		events, err := a.pipeline.AnalyzeStream(c.Request.Context(), fileName, data)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
			return
		}

		for ev := range events {
			payload, err := utils.MarshalToJSON(ev)
			if err != nil {
				config.LogError(a.logger, "server", "analyzeInvoiceStreamHandler", "Marshal event", ev.Type, err)
				continue
			}
			if _, err := c.Writer.Write([]byte("data: " + payload + "\n\n")); err != nil {
				// Client disconnected; the request context cancellation
				// stops the pipeline, just drain the channel.
				a.logger.WithFields(logrus.Fields{
					"module": "server",
					"file":   fileName,
				}).Warn("stream write failed: " + err.Error())
				for range events {
				}
				return
			}
			flusher.Flush()
		}
	}
}

// invoiceHistoryHandler returns every assessment of this process lifetime in
// analysis order.
func invoiceHistoryHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"invoices": a.store.Invoices()})
	}
}
