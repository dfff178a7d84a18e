package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
)

// maxMCPBodyBytes caps how much of a JSON-RPC body is buffered for logging.
const maxMCPBodyBytes = 1 << 20

// MCPToolLogger logs JSON-RPC tool calls made to the MCP endpoint: the tool
// name with redacted arguments on the way in, and the outcome on the way out.
// Other JSON-RPC methods (initialize, tools/list) are logged at DEBUG only.
// Pass nil logger to disable logging.
func MCPToolLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxMCPBodyBytes))
			if err != nil {
				logger.Warn("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var call rpcCall
			_ = json.Unmarshal(body, &call)
			requestID := logging.RequestID(r.Context())

			if call.Method != "tools/call" {
				logger.Debug("MCP request", zap.String("request_id", requestID), zap.String("method", call.Method))
				next.ServeHTTP(w, r)
				return
			}

			logger.Info("MCP tool call",
				zap.String("request_id", requestID),
				zap.String("tool", call.Params.Name),
				zap.Any("arguments", redactArguments(call.Params.Arguments)))

			capture := &bodyCapture{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(capture, r)

			var reply rpcReply
			if err := json.Unmarshal(capture.buf.Bytes(), &reply); err != nil {
				// Streamed (SSE) replies are not plain JSON; the call itself was logged above.
				return
			}

			switch {
			case reply.Error != nil:
				logger.Warn("MCP tool call failed",
					zap.String("request_id", requestID),
					zap.String("tool", call.Params.Name),
					zap.Int("error_code", reply.Error.Code),
					zap.String("error_message", logging.SanitizeText(reply.Error.Message)),
					zap.Duration("duration", time.Since(start)))
			case reply.Result.IsError:
				logger.Warn("MCP tool returned error result",
					zap.String("request_id", requestID),
					zap.String("tool", call.Params.Name),
					zap.Duration("duration", time.Since(start)))
			default:
				logger.Info("MCP tool call completed",
					zap.String("request_id", requestID),
					zap.String("tool", call.Params.Name),
					zap.Duration("duration", time.Since(start)))
			}
		})
	}
}

type rpcCall struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type rpcReply struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// bodyCapture keeps a copy of everything written, up to maxMCPBodyBytes.
type bodyCapture struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (c *bodyCapture) Write(b []byte) (int, error) {
	if room := maxMCPBodyBytes - c.buf.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		c.buf.Write(b[:room])
	}
	return c.ResponseWriter.Write(b)
}

func (c *bodyCapture) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

var sensitiveArgumentKeys = []string{"password", "secret", "token", "key", "credential"}

// redactArguments hides secret-looking keys and shortens long values.
func redactArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		lower := strings.ToLower(k)
		redacted := false
		for _, s := range sensitiveArgumentKeys {
			if strings.Contains(lower, s) {
				redacted = true
				break
			}
		}
		switch str, isString := v.(string); {
		case redacted:
			out[k] = logging.RedactedText
		case isString:
			out[k] = logging.SanitizeQuery(str)
		default:
			out[k] = v
		}
	}
	return out
}
