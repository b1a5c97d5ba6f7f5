package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/safar/vegbox/internal/session"
	"github.com/sirupsen/logrus"
)

type ctxKeyLog struct{}
type ctxKeyRequestID struct{}
type ctxKeySession struct{}

type logHandler struct {
	log  *logrus.Logger
	next http.Handler
}

type responseRecorder struct {
	b      int
	status int
	w      http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header { return r.w.Header() }

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.w.Write(p)
	r.b += n
	return n, err
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if r.status == 0 {
		r.status = statusCode
	}
	r.w.WriteHeader(statusCode)
}

func (r *responseRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (lh *logHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := uuid.NewString()
	ctx = context.WithValue(ctx, ctxKeyRequestID{}, requestID)

	start := time.Now()
	rr := &responseRecorder{w: w}
	log := lh.log.WithFields(logrus.Fields{
		"http.req.path":   r.URL.Path,
		"http.req.method": r.Method,
		"http.req.id":     requestID,
	})
	log.Debug("request started")
	defer func() {
		log.WithFields(logrus.Fields{
			"http.resp.took_ms": int64(time.Since(start) / time.Millisecond),
			"http.resp.status":  rr.code(),
			"http.resp.bytes":   rr.b,
		}).Info("request complete")
	}()

	ctx = context.WithValue(ctx, ctxKeyLog{}, log)
	lh.next.ServeHTTP(rr, r.WithContext(ctx))
}

// ensureSession loads the visitor's session from its cookie, starting a new
// one when the cookie is missing, unknown or expired.
func (s *Server) ensureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := requestLogger(r)

		var sess *session.Session
		if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
			loaded, err := s.sessions.Get(ctx, c.Value)
			switch {
			case err == nil:
				sess = loaded
			case errors.Is(err, session.ErrNotFound):
			default:
				log.WithError(err).Warn("could not load session, starting a new one")
			}
		}
		if sess == nil {
			sess = session.New()
		}

		cookie := &http.Cookie{
			Name:     s.cookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}
		if s.sessionTTL > 0 {
			cookie.MaxAge = int(s.sessionTTL / time.Second)
		}
		http.SetCookie(w, cookie)

		ctx = context.WithValue(ctx, ctxKeySession{}, sess)
		ctx = context.WithValue(ctx, ctxKeyLog{}, log.WithField("session", sess.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(r *http.Request) logrus.FieldLogger {
	if log, ok := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger); ok {
		return log
	}
	return logrus.StandardLogger()
}

func requestID(r *http.Request) string {
	v, _ := r.Context().Value(ctxKeyRequestID{}).(string)
	return v
}

func currentSession(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(ctxKeySession{}).(*session.Session)
	return sess
}
