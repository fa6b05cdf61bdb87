package vendorflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/MKPie/Fatality/internal/domain"
)

// Ack is the immediate acknowledgement for a job the backend runs in
// the background. SessionID is empty on backends exposing a single
// global log stream.
type Ack struct {
	SessionID   string `json:"session_id"`
	Status      string `json:"status"`
	Task        string `json:"task"`
	ModelsCount int    `json:"models_count"`
	Output      string `json:"output"`
}

// StartResponse is the outcome of a job submission: exactly one of
// Ack or Stream is set. When Stream is set the caller owns it and
// must Close it.
type StartResponse struct {
	Ack    *Ack
	Stream *FragmentReader
}

// Streamed reports whether the backend chose to stream status
// fragments on the submission response itself.
func (r *StartResponse) Streamed() bool {
	return r.Stream != nil
}

// SubmitScrape uploads a vendor spreadsheet and starts a scrape job.
func (c *Client) SubmitScrape(ctx context.Context, params domain.ScrapeParams) (*StartResponse, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	p := newPayload()
	p.addFile("file", params.FilePath)
	p.addText("model_column", params.ModelColumn)
	p.addText("prefix", params.Prefix)
	p.addText("variation_mode", params.VariationMode)
	p.addInt("start_row", params.StartRow)
	p.addInt("end_row", params.EndRow)
	p.addInt("save_interval", params.SaveInterval)
	p.addMap("client", submissionMeta())
	return c.submit(ctx, "/api/scrape/file", p)
}

// SubmitTags starts a tag job. Process mode uploads the Excel master
// and CSV export; push mode uploads one processed file.
func (c *Client) SubmitTags(ctx context.Context, params domain.TagsParams) (*StartResponse, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	p := newPayload()
	p.addText("mode", string(params.Mode))
	p.addMap("client", submissionMeta())

	switch params.Mode {
	case domain.TagsModeProcess:
		p.addFile("excel_file", params.ExcelPath)
		p.addFile("csv_file", params.CSVPath)
		p.addText("output_name", params.OutputName)
		return c.submit(ctx, "/api/tags/process", p)
	default:
		p.addFile("file", params.CSVPath)
		return c.submit(ctx, "/api/tags/push", p)
	}
}

// SubmitWeights starts a weight/dimension sync job.
func (c *Client) SubmitWeights(ctx context.Context, params domain.WeightParams) (*StartResponse, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	p := newPayload()
	p.addFile("vendor_file", params.VendorPath)
	p.addFile("output_file", params.OutputPath)
	p.addMap("client", submissionMeta())
	return c.submit(ctx, "/api/weights/process", p)
}

// SubmitFreight starts a freight-API sync job.
func (c *Client) SubmitFreight(ctx context.Context, params domain.FreightParams) (*StartResponse, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	p := newPayload()
	p.addFile("lookup_file", params.LookupPath)
	p.addFile("weight_file", params.WeightPath)
	p.addMap("client", submissionMeta())
	return c.submit(ctx, "/api/eniture/sync", p)
}

// submit posts one multipart payload and interprets the response by
// content type: a JSON body is an acknowledgement, anything else is a
// line-delimited fragment stream handed to the caller.
func (c *Client) submit(ctx context.Context, path string, p *payload) (*StartResponse, error) {
	body, contentType, err := p.encode()
	if err != nil {
		return nil, err
	}

	resp, err := c.doStreaming(ctx, http.MethodPost, path, body, contentType)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		defer resp.Body.Close()
		var ack Ack
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			return nil, fmt.Errorf("decode job acknowledgement: %w", err)
		}
		return &StartResponse{Ack: &ack}, nil
	}
	return &StartResponse{Stream: NewFragmentReader(resp.Body)}, nil
}

// submissionMeta correlates a submission with this console instance
// in the backend's request logs.
func submissionMeta() map[string]string {
	return map[string]string{
		"app":     "fatality",
		"request": uuid.NewString(),
	}
}

// payload assembles a multipart request body. Every role appears
// exactly once; a repeated role poisons the payload and surfaces at
// encode time.
type payload struct {
	parts []part
	roles map[string]struct{}
	err   error
}

type part struct {
	role  string
	path  string // local file to upload; empty for text parts
	value string
}

func newPayload() *payload {
	return &payload{roles: make(map[string]struct{})}
}

func (p *payload) addFile(role, path string) {
	if p.claim(role) {
		p.parts = append(p.parts, part{role: role, path: path})
	}
}

func (p *payload) addText(role, value string) {
	if p.claim(role) {
		p.parts = append(p.parts, part{role: role, value: value})
	}
}

func (p *payload) addInt(role string, v int) {
	p.addText(role, strconv.Itoa(v))
}

// addMap attaches a flat mapping as a single compact JSON text part.
func (p *payload) addMap(role string, fields map[string]string) {
	raw, err := json.Marshal(fields)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("encode %s part: %w", role, err)
		}
		return
	}
	p.addText(role, string(raw))
}

func (p *payload) claim(role string) bool {
	if p.err != nil {
		return false
	}
	if _, dup := p.roles[role]; dup {
		p.err = fmt.Errorf("duplicate multipart role %q", role)
		return false
	}
	p.roles[role] = struct{}{}
	return true
}

// encode renders the multipart body and returns it with its content
// type.
func (p *payload) encode() (*bytes.Buffer, string, error) {
	if p.err != nil {
		return nil, "", p.err
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, pt := range p.parts {
		if pt.path == "" {
			if err := w.WriteField(pt.role, pt.value); err != nil {
				return nil, "", fmt.Errorf("write %s part: %w", pt.role, err)
			}
			continue
		}

		f, err := os.Open(pt.path)
		if err != nil {
			return nil, "", fmt.Errorf("open %s part: %w", pt.role, err)
		}
		dst, err := w.CreateFormFile(pt.role, filepath.Base(pt.path))
		if err != nil {
			f.Close()
			return nil, "", fmt.Errorf("attach %s part: %w", pt.role, err)
		}
		if _, err := io.Copy(dst, f); err != nil {
			f.Close()
			return nil, "", fmt.Errorf("copy %s part: %w", pt.role, err)
		}
		f.Close()
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}
