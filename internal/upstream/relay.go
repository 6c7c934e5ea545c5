package upstream

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
	"github.com/rhinos0608/skyrimnet-proxy/internal/util"
	"github.com/rhinos0608/skyrimnet-proxy/pkg/pool"
)

// TerminatorLine is the literal final event of an OpenAI-style completion
// stream. Forwarded exactly once per relay, synthesized if the upstream
// omits it.
const TerminatorLine = "data: [DONE]"

const defaultStreamBufferSize = 8 * 1024

type streamBuffer struct {
	data []byte
}

func (b *streamBuffer) Reset() {
	// capacity is reused, contents are overwritten by the next read
	b.data = b.data[:cap(b.data)]
}

// Relay pipes a provider's event stream to the client byte-for-byte. No JSON
// inspection of stream payloads happens here; the only line the relay
// recognises is the terminator. Shares the permit pool with the dispatcher.
type Relay struct {
	pools   *PoolManager
	limiter *Limiter
	buffers *pool.Pool[*streamBuffer]
	logger  *logger.StyledLogger
}

func NewRelay(pools *PoolManager, limiter *Limiter, bufferSize int, log *logger.StyledLogger) *Relay {
	if bufferSize <= 0 {
		bufferSize = defaultStreamBufferSize
	}
	buffers, _ := pool.NewLitePool(func() *streamBuffer {
		return &streamBuffer{data: make([]byte, bufferSize)}
	})

	return &Relay{
		pools:   pools,
		limiter: limiter,
		buffers: buffers,
		logger:  log,
	}
}

// Stream opens the upstream completion stream and relays it to the client.
// Response headers are only committed after a successful upstream status, so
// a non-nil error always means nothing has been written and the caller still
// owns the response. Once committed, upstream failures terminate the
// connection and Stream returns nil.
func (r *Relay) Stream(ctx context.Context, w http.ResponseWriter, provider *domain.Provider, body []byte, credential string) error {
	release, err := r.limiter.Acquire(ctx, provider.ID, provider.GetMaxConcurrent())
	if err != nil {
		return err
	}
	defer release()

	streamCtx, cancel := context.WithTimeout(ctx, provider.GetTimeout())
	defer cancel()

	endpoint := util.BuildChatCompletionsURL(provider.BaseURL)
	client := r.pools.ClientFor(util.OriginOf(endpoint))

	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &domain.UpstreamError{Err: err, ProviderID: provider.ID, Attempts: 1}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", provider.AuthorizationValue(credential))

	resp, err := client.Do(req)
	if err != nil {
		upstreamErr := &domain.UpstreamError{Err: err, ProviderID: provider.ID, Attempts: 1}
		if streamCtx.Err() == context.DeadlineExceeded {
			upstreamErr.StatusCode = http.StatusGatewayTimeout
			upstreamErr.Timeout = true
		}
		return upstreamErr
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(resp.Body)
		return &domain.UpstreamError{
			ProviderID: provider.ID,
			StatusCode: resp.StatusCode,
			Body:       errBody,
			Attempts:   1,
		}
	}

	if provider.StreamAdapter == domain.StreamAdapterRewrite {
		// reserved for upstreams with non-conformant framing; nothing ships
		// with it yet, so relay verbatim
		r.logger.Debug("Stream adapter 'rewrite' not implemented, relaying verbatim", "provider", provider.ID)
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	r.relay(w, resp.Body, provider.ID)
	return nil
}

// relay copies event-stream lines from upstream to the client, carrying
// partial lines across reads. The terminator is deduplicated and, when the
// upstream closes without sending one, synthesized so the client always sees
// a complete stream.
func (r *Relay) relay(w http.ResponseWriter, upstream io.Reader, providerID string) {
	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	buf := r.buffers.Get()
	defer r.buffers.Put(buf)

	var carry []byte
	for {
		n, readErr := upstream.Read(buf.data)
		if n > 0 {
			chunk := buf.data[:n]
			for {
				idx := bytes.IndexByte(chunk, '\n')
				if idx < 0 {
					carry = append(carry, chunk...)
					break
				}

				line := chunk[:idx]
				chunk = chunk[idx+1:]
				if len(carry) > 0 {
					line = append(carry, line...)
					carry = carry[:0]
				}

				if isTerminator(line) {
					r.writeTerminator(w, flush)
					return
				}
				if _, err := w.Write(append(line, '\n')); err != nil {
					r.logger.Debug("Client went away mid-stream", "provider", providerID)
					return
				}
			}
			flush()
		}

		if readErr != nil {
			if readErr != io.EOF {
				r.logger.WarnWithProvider("Upstream stream ended abruptly", providerID, "error", readErr)
			}
			// forward any dangling partial line before closing out
			if len(carry) > 0 && !isTerminator(carry) {
				if _, err := w.Write(append(carry, '\n')); err != nil {
					return
				}
			}
			r.writeTerminator(w, flush)
			return
		}
	}
}

func (r *Relay) writeTerminator(w http.ResponseWriter, flush func()) {
	if _, err := w.Write([]byte(TerminatorLine + "\n\n")); err == nil {
		flush()
	}
}

func isTerminator(line []byte) bool {
	return string(bytes.TrimRight(line, "\r")) == TerminatorLine
}
