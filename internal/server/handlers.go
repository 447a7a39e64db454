package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5/middleware"

	"zcomposite/internal/params"
	"zcomposite/pkg/cache"
	"zcomposite/pkg/export"
	"zcomposite/pkg/ingest"
	"zcomposite/pkg/normalize"
	"zcomposite/pkg/pipeline"
	"zcomposite/pkg/volume"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// handleRender renders an uploaded volume and answers with a single PNG
// slice when the request names a z index, or a zip archive of the full
// stack otherwise.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	vol, err := ingest.Read(bytes.NewReader(raw))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	opts, err := s.buildOptions(vol.C, r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	z := -1
	if v := r.FormValue("z"); v != "" {
		z, err = strconv.Atoi(v)
		if err != nil || z < 0 {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid z index %q", v))
			return
		}
	}

	preview := 0
	if v := r.FormValue("preview"); v != "" {
		preview, err = strconv.Atoi(v)
		if err != nil || preview < 0 {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid preview size %q", v))
			return
		}
	}
	if preview > 0 && z < 0 {
		s.fail(w, r, http.StatusBadRequest, errors.New("preview requires a z index"))
		return
	}
	if s.opts.PreviewMaxEdge > 0 && preview > s.opts.PreviewMaxEdge {
		preview = s.opts.PreviewMaxEdge
	}

	selector := "archive"
	if z >= 0 {
		selector = fmt.Sprintf("z=%d;preview=%d", z, preview)
	}
	key := cache.Key(raw, opts.Fingerprint(), selector)
	if data, err := s.store.Get(key); err == nil {
		s.logger.Debug("serving cached artifact", "key", key[:12])
		s.serveArtifact(w, z, data)
		return
	}

	runner := pipeline.Runner{Logger: s.logger}
	res, err := runner.Run(vol, opts)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if z >= 0 {
		if preview > 0 {
			err = export.EncodePreview(&buf, res.Stack, z, preview)
		} else {
			err = export.EncodeSlice(&buf, res.Stack, z)
		}
	} else {
		err = export.WriteArchive(&buf, res.Stack)
	}
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}

	if err := s.store.Set(key, buf.Bytes()); err != nil {
		s.logger.Warn("failed to cache artifact", "err", err)
	}
	s.serveArtifact(w, z, buf.Bytes())
}

// inspectResponse is the JSON answer for a volume inspection request.
type inspectResponse struct {
	Shape    [4]int           `json:"shape"`
	Channels []channelSummary `json:"channels"`
}

type channelSummary struct {
	Index  int     `json:"index"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// handleInspect answers with the shape and per-channel statistics of an
// uploaded volume without rendering it.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	vol, err := ingest.Read(bytes.NewReader(raw))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	resp := inspectResponse{Shape: vol.Shape(), Channels: []channelSummary{}}
	for _, cs := range vol.Stats() {
		resp.Channels = append(resp.Channels, channelSummary{
			Index:  cs.Channel,
			Min:    finite(cs.Min),
			Max:    finite(cs.Max),
			Mean:   finite(cs.Mean),
			StdDev: finite(cs.StdDev),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

// readUpload pulls the multipart "volume" field, bounded by the upload limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	file, header, err := r.FormFile("volume")
	if err != nil {
		s.failUpload(w, r, err)
		return nil, false
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		s.failUpload(w, r, err)
		return nil, false
	}

	s.logger.Debug("received volume",
		"name", header.Filename,
		"size", humanize.Bytes(uint64(len(raw))),
		"id", middleware.GetReqID(r.Context()))
	return raw, true
}

// buildOptions turns the request's form fields into fully-sized render
// options, falling back to the server defaults where fields are absent.
func (s *Server) buildOptions(channels int, r *http.Request) (*pipeline.Options, error) {
	parsedWindows, err := params.ParseWindows(r.FormValue("window"))
	if err != nil {
		return nil, err
	}
	windows, err := params.WindowsForChannels(parsedWindows, channels)
	if err != nil {
		return nil, err
	}
	if windows == nil {
		windows = make([]normalize.Window, channels)
		for i := range windows {
			windows[i] = s.opts.DefaultWindow
		}
	}

	parsedColors, err := params.ParseColors(r.FormValue("color"))
	if err != nil {
		return nil, err
	}
	colors, err := params.ColorsForChannels(parsedColors, channels)
	if err != nil {
		return nil, err
	}
	if colors == nil {
		colors = params.PaletteForChannels(s.opts.Palette, channels)
	}

	hidden, err := params.ParseIndexList(r.FormValue("hide"))
	if err != nil {
		return nil, err
	}
	visible, err := params.Visibility(channels, hidden)
	if err != nil {
		return nil, err
	}

	return &pipeline.Options{
		Windows: windows,
		Colors:  colors,
		Visible: visible,
		Workers: s.opts.Workers,
	}, nil
}

func (s *Server) serveArtifact(w http.ResponseWriter, z int, data []byte) {
	name := export.ArchiveFilename
	ctype := "application/zip"
	if z >= 0 {
		name = export.SliceFilename(z)
		ctype = export.MIMEType
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// fail logs the error and writes it as the response with the given status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"id", middleware.GetReqID(r.Context()),
		"err", err)
	http.Error(w, err.Error(), status)
}

// failUpload maps upload errors, answering 413 when the body limit tripped.
func (s *Server) failUpload(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.fail(w, r, http.StatusRequestEntityTooLarge, err)
		return
	}
	s.fail(w, r, http.StatusBadRequest, fmt.Errorf("failed to read volume upload: %w", err))
}

// statusFor maps pipeline errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, volume.ErrUnsupportedShape),
		errors.Is(err, volume.ErrChannelCount),
		errors.Is(err, export.ErrSliceOutOfRange):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// finite replaces NaN and infinities, which JSON cannot carry, with zero.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
