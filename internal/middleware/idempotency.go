package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	// replayTTL is how long a finished response can be replayed.
	replayTTL = 24 * time.Hour
	// pendingTTL bounds how long a crashed request can block its key.
	pendingTTL = 30 * time.Second
)

// replayRecord is what an idempotency key holds in Redis. A record without a
// status belongs to a request that is still running.
type replayRecord struct {
	Status      int             `json:"status,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

func (r replayRecord) finished() bool { return r.Status != 0 }

var pendingRecord, _ = json.Marshal(replayRecord{})

// bodyRecorder tees the handler's output so it can be stored.
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a mutating request
// carrying an Idempotency-Key already seen for the same caller and route.
// A retry that arrives while the first attempt is still running gets 409.
func IdempotencyMiddleware(client redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" || !mutating(c.Request.Method) {
			c.Next()
			return
		}

		actorID := ""
		if actor, ok := ActorFrom(c); ok {
			actorID = actor.ID
		}
		redisKey := idempotencyKey(actorID, c.Request.Method, c.FullPath(), key)
		ctx := c.Request.Context()
		log := logrus.WithFields(logrus.Fields{"route": c.FullPath(), "actor_id": actorID})

		claimed, err := client.SetNX(ctx, redisKey, pendingRecord, pendingTTL).Result()
		if err != nil {
			log.WithError(err).Warn("idempotency store unavailable, processing request normally")
			c.Next()
			return
		}

		if !claimed {
			record, err := loadRecord(ctx, client, redisKey)
			switch {
			case errors.Is(err, redis.Nil):
				// The earlier attempt expired between the two calls.
				c.Next()
			case err != nil:
				log.WithError(err).Warn("idempotency lookup failed, processing request normally")
				c.Next()
			case !record.finished():
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this idempotency key is in progress"})
			default:
				c.Header(replayedHeader, "true")
				c.Data(record.Status, record.ContentType, record.Body)
				c.Abort()
			}
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		// The request context may already be cancelled once the handler returns.
		bg := context.WithoutCancel(ctx)
		status := rec.Status()
		if status >= http.StatusInternalServerError {
			// Server failures are retryable, so the key is released.
			client.Del(bg, redisKey)
			return
		}

		record := replayRecord{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
		}
		if err := storeRecord(bg, client, redisKey, record); err != nil {
			log.WithError(err).Warn("failed to store idempotent response")
		}
	}
}

func mutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// idempotencyKey scopes a client key to the caller and route so two callers
// reusing a key never see each other's responses.
func idempotencyKey(actorID, method, route, key string) string {
	sum := sha256.Sum256([]byte(actorID + "\x00" + method + "\x00" + route + "\x00" + key))
	return "idempotency:" + hex.EncodeToString(sum[:])
}

func loadRecord(ctx context.Context, client redis.Cmdable, key string) (replayRecord, error) {
	var record replayRecord
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return record, err
	}
	err = json.Unmarshal(data, &record)
	return record, err
}

func storeRecord(ctx context.Context, client redis.Cmdable, key string, record replayRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, replayTTL).Err()
}
