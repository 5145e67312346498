package ml

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"
)

// Encoder maps texts to fixed-length dense vectors. Deterministic: identical
// input text always yields an identical vector.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
}

// TextEncoder is the in-process semantic encoder. It stands in for an
// external sentence-embedding model behind the same contract: pure,
// deterministic, batch-oriented. Vectors derive from content hash and token
// features so that similar texts land near each other while identical texts
// are byte-stable, and results are cached in Redis keyed by model, version
// and content hash.
type TextEncoder struct {
	registry    *ModelRegistry
	redisClient *redis.Client
	logger      *logrus.Logger

	modelName  string
	version    string
	dimensions int
	batchSize  int
	cacheTTL   time.Duration

	workerPool chan chan encodeJob
	jobQueue   chan encodeJob
	quit       chan struct{}
}

type encodeJob struct {
	text     string
	response chan encodeResult
}

type encodeResult struct {
	vector []float64
	err    error
}

type TextEncoderConfig struct {
	ModelName  string
	Version    string
	Dimensions int
	BatchSize  int
	Workers    int
	CacheTTL   time.Duration
}

func NewTextEncoder(registry *ModelRegistry, redisClient *redis.Client, logger *logrus.Logger, cfg TextEncoderConfig) *TextEncoder {
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}

	e := &TextEncoder{
		registry:    registry,
		redisClient: redisClient,
		logger:      logger,
		modelName:   cfg.ModelName,
		version:     cfg.Version,
		dimensions:  cfg.Dimensions,
		batchSize:   cfg.BatchSize,
		cacheTTL:    cfg.CacheTTL,
		workerPool:  make(chan chan encodeJob, cfg.Workers),
		jobQueue:    make(chan encodeJob, cfg.BatchSize*2),
		quit:        make(chan struct{}),
	}

	if registry != nil {
		registry.Register(&ModelInfo{
			Name:       cfg.ModelName,
			Version:    cfg.Version,
			Kind:       "encoder",
			Dimensions: cfg.Dimensions,
			Status:     ModelStatusReady,
		})
	}

	for i := 0; i < cfg.Workers; i++ {
		go e.worker()
	}
	go e.dispatch()

	return e
}

func (e *TextEncoder) Dimensions() int { return e.dimensions }

func (e *TextEncoder) dispatch() {
	for {
		select {
		case job := <-e.jobQueue:
			select {
			case ch := <-e.workerPool:
				ch <- job
			case <-e.quit:
				return
			}
		case <-e.quit:
			return
		}
	}
}

func (e *TextEncoder) worker() {
	jobs := make(chan encodeJob)
	for {
		select {
		case e.workerPool <- jobs:
		case <-e.quit:
			return
		}
		select {
		case job := <-jobs:
			job.response <- encodeResult{vector: e.encodeOne(job.text)}
		case <-e.quit:
			return
		}
	}
}

// Encode vectorizes a batch of texts, preserving input order.
func (e *TextEncoder) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	out := make([][]float64, len(texts))
	pending := make([]chan encodeResult, len(texts))

	for i, text := range texts {
		if cached, ok := e.cachedVector(ctx, text); ok {
			out[i] = cached
			continue
		}
		resp := make(chan encodeResult, 1)
		pending[i] = resp
		select {
		case e.jobQueue <- encodeJob{text: text, response: resp}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	for i, resp := range pending {
		if resp == nil {
			continue
		}
		select {
		case result := <-resp:
			if result.err != nil {
				return nil, fmt.Errorf("encode text %d: %w", i, result.err)
			}
			out[i] = result.vector
			e.cacheVector(ctx, texts[i], result.vector)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return out, nil
}

func (e *TextEncoder) encodeOne(text string) []float64 {
	tokens := encoderTokens(text)
	vec := make([]float64, e.dimensions)

	hash := sha256.Sum256([]byte(foldText(text)))
	textLen := float64(len(text))
	tokenCount := float64(len(tokens))

	for i := 0; i < e.dimensions; i++ {
		hashComponent := (float64(hash[i%len(hash)])/255.0 - 0.5) * 0.4
		tokenComponent := tokenFeature(tokens, i) * 0.3
		lengthComponent := (squash(textLen/100.0) - 0.5) * 0.2
		posComponent := 0.1 * (float64(i)/float64(e.dimensions) - 0.5)
		vec[i] = hashComponent + tokenComponent + lengthComponent + posComponent
	}

	// Spread per-token signal so shared vocabulary pulls vectors together.
	for _, tok := range tokens {
		th := sha256.Sum256([]byte(tok))
		idx := int(th[0])<<8 | int(th[1])
		vec[idx%e.dimensions] += 0.5 / (1 + tokenCount/8)
	}

	if n := floats.Norm(vec, 2); n > 0 {
		floats.Scale(1/n, vec)
	}
	return vec
}

// squash maps x into (0,1) monotonically.
func squash(x float64) float64 {
	return x / (1 + x)
}

func tokenFeature(tokens []string, dimension int) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var feature float64
	switch dimension % 4 {
	case 0: // average token length
		total := 0
		for _, t := range tokens {
			total += len(t)
		}
		feature = float64(total) / float64(len(tokens)) / 10.0
	case 1: // token diversity
		unique := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			unique[t] = struct{}{}
		}
		feature = float64(len(unique)) / float64(len(tokens))
	case 2: // numeric density
		numeric := 0
		for _, t := range tokens {
			if t != "" && t[0] >= '0' && t[0] <= '9' {
				numeric++
			}
		}
		feature = float64(numeric) / float64(len(tokens))
	case 3: // short-token density
		short := 0
		for _, t := range tokens {
			if len(t) <= 3 {
				short++
			}
		}
		feature = float64(short) / float64(len(tokens))
	}
	return feature - 0.5
}

var encoderFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldText(s string) string {
	folded, _, err := transform.String(encoderFold, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

func encoderTokens(text string) []string {
	return strings.FieldsFunc(foldText(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func (e *TextEncoder) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embed:text:%s:%s:%x", e.modelName, e.version, hash[:8])
}

func (e *TextEncoder) cachedVector(ctx context.Context, text string) ([]float64, bool) {
	if e.redisClient == nil {
		return nil, false
	}
	data, err := e.redisClient.Get(ctx, e.cacheKey(text)).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		e.logger.WithError(err).Warn("Failed to deserialize cached embedding")
		return nil, false
	}
	return vec, true
}

func (e *TextEncoder) cacheVector(ctx context.Context, text string, vec []float64) {
	if e.redisClient == nil {
		return
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := e.redisClient.Set(ctx, e.cacheKey(text), data, e.cacheTTL).Err(); err != nil {
		e.logger.WithError(err).Debug("Failed to cache embedding")
	}
}

// Stop shuts down the worker pool.
func (e *TextEncoder) Stop() {
	close(e.quit)
	e.logger.Info("Text encoder stopped")
}
