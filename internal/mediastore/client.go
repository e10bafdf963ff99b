package mediastore

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bloghub/bloghub/internal/telemetry/tracing"
)

const uploadFolder = "blog-images"

// Client talks to a cloudinary-compatible image hosting API
type Client struct {
	endpoint   string
	cloudName  string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

func NewClient(
	endpoint, cloudName, apiKey, apiSecret string,
	httpClient *http.Client,
) *Client {
	return &Client{
		endpoint:   endpoint,
		cloudName:  cloudName,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: httpClient,
	}
}

func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (uploadedImg *UploadedImage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mediastore.upload")
	span.SetAttributes(attribute.String("filename", filename))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	publicID := fmt.Sprintf("%s/%s", uploadFolder, uuid.NewString())
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := c.sign(map[string]string{
		"folder":    uploadFolder,
		"public_id": publicID,
		"timestamp": timestamp,
	})

	var buf bytes.Buffer
	mpWriter := multipart.NewWriter(&buf)

	fileWriter, err := mpWriter.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fileWriter, content); err != nil {
		return nil, fmt.Errorf("copy image content: %w", err)
	}

	formFields := map[string]string{
		"api_key":   c.apiKey,
		"timestamp": timestamp,
		"folder":    uploadFolder,
		"public_id": publicID,
		"signature": signature,
	}
	for field, value := range formFields {
		if err := mpWriter.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", field, err)
		}
	}

	if err := mpWriter.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	// the "auto" segment leaves resource kind detection to the hosting API
	uploadUrl := fmt.Sprintf("%s/v1_1/%s/auto/upload", c.endpoint, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadUrl, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mpWriter.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %s", ErrUploadFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Errorf("image upload failed, status %d: %s", resp.StatusCode, respBytes)
		return nil, fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	var uploaded UploadedImage
	if err := json.Unmarshal(respBytes, &uploaded); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %s", ErrUploadFailed, err)
	}
	if uploaded.URL == "" || uploaded.PublicID == "" {
		return nil, fmt.Errorf("%w: incomplete response", ErrUploadFailed)
	}

	span.SetAttributes(attribute.String("public.id", uploaded.PublicID))
	log.Tracef("image [%s] uploaded as [%s]", filename, uploaded.PublicID)

	return &uploaded, nil
}

func (c *Client) Delete(ctx context.Context, publicID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mediastore.delete")
	span.SetAttributes(attribute.String("public.id", publicID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := c.sign(map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	})

	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", timestamp)
	form.Set("api_key", c.apiKey)
	form.Set("signature", signature)

	destroyUrl := fmt.Sprintf("%s/v1_1/%s/image/destroy", c.endpoint, c.cloudName)
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, destroyUrl, strings.NewReader(form.Encode()),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("destroy image: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("destroy image, read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Errorf("image destroy failed, status %d: %s", resp.StatusCode, respBytes)
		return fmt.Errorf("destroy image: status %d", resp.StatusCode)
	}

	var destroyResp struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(respBytes, &destroyResp); err != nil {
		return fmt.Errorf("destroy image, unmarshal response: %w", err)
	}

	switch destroyResp.Result {
	case "ok":
		log.Tracef("image [%s] destroyed", publicID)
		return nil
	case "not found":
		return ErrImageNotFound
	default:
		return fmt.Errorf("destroy image: unexpected result [%s]", destroyResp.Result)
	}
}

// sign produces the request signature the hosting API expects: the
// sorted params in query string form, with the api secret appended,
// hashed with sha1
func (c *Client) sign(params map[string]string) string {
	values := url.Values{}
	for param, value := range params {
		values.Set(param, value)
	}

	toSign := values.Encode() + c.apiSecret
	return fmt.Sprintf("%x", sha1.Sum([]byte(toSign)))
}
