package providers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	replicateAPIBase = "https://api.replicate.com/v1"
	// Hard cap on collection pagination so a huge catalog cannot stall the UI.
	replicateMaxPages = 20
)

// ReplicateClient drives the Replicate predictions API for image, video,
// audio and upscaler nodes.
type ReplicateClient struct {
	http *resty.Client
}

// Prediction is the lifecycle record of one model run.
type Prediction struct {
	ID     string                 `json:"id"`
	Status string                 `json:"status"`
	Input  map[string]interface{} `json:"input,omitempty"`
	Output interface{}            `json:"output,omitempty"`
	Error  interface{}            `json:"error,omitempty"`
	Logs   string                 `json:"logs,omitempty"`
	URLs   map[string]string      `json:"urls,omitempty"`
}

// Model is a catalog entry.
type Model struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	LatestVersion *struct {
		ID string `json:"id"`
	} `json:"latest_version,omitempty"`
}

// UploadedFile is the record returned by the files API.
type UploadedFile struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	URLs map[string]string `json:"urls,omitempty"`
}

type apiError struct {
	Detail string `json:"detail"`
}

func NewReplicateClient(apiKey string) *ReplicateClient {
	client := resty.New().
		SetBaseURL(replicateAPIBase).
		SetHeader("Authorization", "Token "+apiKey).
		SetHeader("Content-Type", "application/json")
	return &ReplicateClient{http: client}
}

// CreatePrediction starts a run. When version is empty, model must name an
// official model ("owner/name") and the models endpoint is used instead.
func (c *ReplicateClient) CreatePrediction(ctx context.Context, model, version string, input map[string]interface{}) (*Prediction, error) {
	var prediction Prediction
	var apiErr apiError

	req := c.http.R().
		SetContext(ctx).
		SetResult(&prediction).
		SetError(&apiErr)

	var resp *resty.Response
	var err error
	if version != "" {
		resp, err = req.
			SetBody(map[string]interface{}{"version": version, "input": input}).
			Post("/predictions")
	} else {
		if !strings.Contains(model, "/") {
			return nil, fmt.Errorf("replicate: model must be owner/name, got %q", model)
		}
		resp, err = req.
			SetBody(map[string]interface{}{"input": input}).
			Post("/models/" + model + "/predictions")
	}
	if err != nil {
		return nil, fmt.Errorf("replicate: create prediction failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("replicate: create prediction failed: %s", errorDetail(resp, apiErr))
	}
	return &prediction, nil
}

func (c *ReplicateClient) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	var prediction Prediction
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&prediction).
		SetError(&apiErr).
		Get("/predictions/" + id)
	if err != nil {
		return nil, fmt.Errorf("replicate: get prediction failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("replicate: get prediction failed: %s", errorDetail(resp, apiErr))
	}
	return &prediction, nil
}

func (c *ReplicateClient) CancelPrediction(ctx context.Context, id string) error {
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetError(&apiErr).
		Post("/predictions/" + id + "/cancel")
	if err != nil {
		return fmt.Errorf("replicate: cancel prediction failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("replicate: cancel prediction failed: %s", errorDetail(resp, apiErr))
	}
	return nil
}

func (c *ReplicateClient) GetModel(ctx context.Context, owner, name string) (*Model, error) {
	var model Model
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&model).
		SetError(&apiErr).
		Get("/models/" + owner + "/" + name)
	if err != nil {
		return nil, fmt.Errorf("replicate: get model failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("replicate: get model failed: %s", errorDetail(resp, apiErr))
	}
	return &model, nil
}

// ListCollectionModels returns every model in a curated collection,
// following pagination up to the page cap.
func (c *ReplicateClient) ListCollectionModels(ctx context.Context, collection string) ([]Model, error) {
	type collectionPage struct {
		Models []Model `json:"models"`
		Next   string  `json:"next"`
	}

	var all []Model
	url := "/collections/" + collection

	for page := 0; page < replicateMaxPages && url != ""; page++ {
		var body collectionPage
		var apiErr apiError

		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&body).
			SetError(&apiErr).
			Get(url)
		if err != nil {
			return nil, fmt.Errorf("replicate: list collection failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("replicate: list collection failed: %s", errorDetail(resp, apiErr))
		}

		all = append(all, body.Models...)
		url = body.Next
	}
	return all, nil
}

// UploadFile pushes raw bytes to the files API so large inputs do not have
// to travel inline as data URLs.
func (c *ReplicateClient) UploadFile(ctx context.Context, filename string, content []byte) (*UploadedFile, error) {
	var file UploadedFile
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("content", filename, bytes.NewReader(content)).
		SetResult(&file).
		SetError(&apiErr).
		Post("/files")
	if err != nil {
		return nil, fmt.Errorf("replicate: upload file failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("replicate: upload file failed: %s", errorDetail(resp, apiErr))
	}
	return &file, nil
}

func (c *ReplicateClient) DeleteFile(ctx context.Context, id string) error {
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetError(&apiErr).
		Delete("/files/" + id)
	if err != nil {
		return fmt.Errorf("replicate: delete file failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("replicate: delete file failed: %s", errorDetail(resp, apiErr))
	}
	return nil
}

func errorDetail(resp *resty.Response, apiErr apiError) string {
	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	return resp.Status()
}
