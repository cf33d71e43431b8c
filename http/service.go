package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"github.com/svanichkin/regionqt"
	"github.com/svanichkin/regionqt/imageio"
	"github.com/svanichkin/regionqt/plot"
)

const (
	// DefaultMaxBodySize is the request body limit used when Service leaves
	// it unset.
	DefaultMaxBodySize = 32 << 20

	// DefaultMaxPixels is the image and tree size limit used when Service
	// leaves it unset. Rasterizing a tree of that size takes 64 MiB.
	DefaultMaxPixels = 16 << 20

	// DefaultMaxStreamSize is the decompressed tree size limit used when
	// Service leaves it unset.
	DefaultMaxStreamSize = 128 << 20

	requestIDHeader = "X-Request-Id"

	errTypeBadRequest      = "bad-request"
	errTypeRequestTooLarge = "request-too-large"
	errTypeImageTooLarge   = "image-too-large"
)

// Service handles build, encode, decode, overlay and info requests.
type Service struct {
	// The version reported by the version endpoint.
	Version string

	// The maximum accepted request body size in bytes.
	MaxBodySize int64

	// The maximum width*height of an uploaded image or tree. Checked before
	// any pixel is decoded or rasterized.
	MaxPixels int64

	// The maximum size of a tree stream once decompressed.
	MaxStreamSize int

	// The number of goroutines used to build a tree. 0 and 1 build
	// sequentially, a negative value uses GOMAXPROCS.
	Parallelism int

	// The options used to draw overlays.
	Plot plot.Options
}

// Info is the JSON body returned by the info endpoint.
type Info struct {
	Width       uint32 `json:"width"`
	Height      uint32 `json:"height"`
	Leaves      int    `json:"leaves"`
	Interiors   int    `json:"interiors"`
	Depth       int    `json:"depth"`
	EncodedSize int    `json:"encoded_size"`
}

// Handler returns the service routes.
func (s *Service) Handler() http.Handler {
	var mux http.ServeMux
	mux.HandleFunc("GET /health", HandleHealthCheck)
	mux.HandleFunc("GET /version", HandleVersion(s.Version))
	mux.Handle("POST /encode", s.handle("encode", s.encode))
	mux.Handle("POST /decode", s.handle("decode", s.decode))
	mux.Handle("POST /overlay", s.handle("overlay", s.overlay))
	mux.Handle("POST /info", s.handle("info", s.info))
	return withRequestID(&mux)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, body []byte) error

func (s *Service) handle(endpoint string, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer instrumentLatency(endpoint, time.Now())

		body, err := s.readBody(w, r)
		if err == nil {
			err = h(w, r, body)
		}
		if err == nil {
			return
		}

		instrumentRequestError(endpoint, err)
		logs.Warn(errors.New("handling request failed").
			WithTag("request_id", requestID(r.Context())).
			WithTag("endpoint", endpoint).
			Wrap(err))
		writeError(w, err)
	})
}

func (s *Service) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.MaxBodySize
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		if _, ok := err.(*http.MaxBytesError); ok {
			return nil, errors.New("request body too large").
				WithType(errTypeRequestTooLarge).
				WithTag("limit", limit).
				Wrap(err)
		}
		return nil, errors.New("reading request body failed").
			WithType(errTypeBadRequest).
			Wrap(err)
	}
	return body, nil
}

func (s *Service) encode(w http.ResponseWriter, r *http.Request, body []byte) error {
	compress := false
	if v := r.URL.Query().Get("compress"); v != "" {
		var err error
		if compress, err = strconv.ParseBool(v); err != nil {
			return errors.New("invalid compress parameter").
				WithType(errTypeBadRequest).
				WithTag("compress", v).
				Wrap(err)
		}
	}

	tree, err := s.buildImage(r.Context(), "encode", body)
	if err != nil {
		return err
	}

	data, err := regionqt.Save(tree, regionqt.WithCompression(compress))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	return nil
}

func (s *Service) decode(w http.ResponseWriter, r *http.Request, body []byte) error {
	tree, err := s.loadTree(body)
	if err != nil {
		return err
	}

	buf, err := tree.PixelBuffer()
	if err != nil {
		return err
	}
	return writePNG(w, func(w io.Writer) error {
		return imageio.Encode(w, buf.Image(), imageio.FormatPNG)
	})
}

func (s *Service) overlay(w http.ResponseWriter, r *http.Request, body []byte) error {
	tree, err := s.imageOrTree(r.Context(), "overlay", body)
	if err != nil {
		return err
	}
	return writePNG(w, func(w io.Writer) error {
		return plot.EncodePNG(w, tree, s.Plot)
	})
}

func (s *Service) info(w http.ResponseWriter, r *http.Request, body []byte) error {
	tree, err := s.imageOrTree(r.Context(), "info", body)
	if err != nil {
		return err
	}

	stats, err := tree.Stats()
	if err != nil {
		return err
	}
	width, height, err := tree.Dimensions()
	if err != nil {
		return err
	}
	data, err := regionqt.Encode(tree)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(Info{
		Width:       width,
		Height:      height,
		Leaves:      stats.Leaves,
		Interiors:   stats.Interiors,
		Depth:       stats.Depth,
		EncodedSize: len(data),
	})
}

// imageOrTree accepts either an image in a decodable format or an encoded
// tree. Images are tried first since their formats start with a signature.
func (s *Service) imageOrTree(ctx context.Context, endpoint string, body []byte) (*regionqt.Tree, error) {
	tree, err := s.buildImage(ctx, endpoint, body)
	if err == nil {
		return tree, nil
	}
	if errors.Type(err) == errTypeImageTooLarge {
		return nil, err
	}

	tree, lerr := s.loadTree(body)
	if lerr != nil {
		return nil, errors.New("body is neither an image nor an encoded tree").
			WithType(errors.Type(lerr)).
			WithTag("image_error", err.Error()).
			Wrap(lerr)
	}

	if stats, err := tree.Stats(); err == nil {
		instrumentLeaves(endpoint, stats.Leaves)
	}
	return tree, nil
}

// loadTree loads an encoded tree within the service limits.
func (s *Service) loadTree(body []byte) (*regionqt.Tree, error) {
	return regionqt.Load(body,
		regionqt.WithMaxPixels(s.maxPixels()),
		regionqt.WithMaxStreamSize(s.maxStreamSize()),
	)
}

func (s *Service) buildImage(ctx context.Context, endpoint string, body []byte) (*regionqt.Tree, error) {
	conf, _, err := imageio.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if int64(conf.Width)*int64(conf.Height) > s.maxPixels() {
		return nil, errors.New("image exceeds the pixel limit").
			WithType(errTypeImageTooLarge).
			WithTag("width", conf.Width).
			WithTag("height", conf.Height).
			WithTag("limit", s.maxPixels())
	}

	buf, format, err := imageio.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	parallelism := s.Parallelism
	if parallelism == 0 {
		parallelism = 1
	}

	start := time.Now()
	tree, err := regionqt.Build(buf, regionqt.WithParallelism(parallelism))
	if err != nil {
		return nil, err
	}

	stats, _ := tree.Stats()
	instrumentBuild(endpoint, stats.Leaves)

	logs.WithTag("request_id", requestID(ctx)).
		WithTag("endpoint", endpoint).
		WithTag("format", format).
		WithTag("width", buf.Width()).
		WithTag("height", buf.Height()).
		WithTag("leaves", stats.Leaves).
		WithTag("duration", time.Since(start).String()).
		Info("tree built")
	return tree, nil
}

func (s *Service) maxPixels() int64 {
	if s.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return s.MaxPixels
}

func (s *Service) maxStreamSize() int {
	if s.MaxStreamSize <= 0 {
		return DefaultMaxStreamSize
	}
	return s.MaxStreamSize
}

func writePNG(w http.ResponseWriter, encode func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.Type(err) {
	case errTypeBadRequest, regionqt.ErrTypeSourceUnavailable:
		status = http.StatusBadRequest

	case errTypeRequestTooLarge, errTypeImageTooLarge:
		status = http.StatusRequestEntityTooLarge

	case regionqt.ErrTypeCorruptData:
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{
		Error: err.Error(),
		Type:  errors.Type(err),
	})
}

type requestIDKey struct{}

// withRequestID tags every request with an id, reusing the caller's one when
// it is a valid uuid.
func withRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
