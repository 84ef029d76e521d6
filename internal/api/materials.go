package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/englishstudent/client/internal/models"
)

// ListMaterials retrieves all materials across courses.
func (c *Client) ListMaterials(ctx context.Context) ([]models.Material, error) {
	return getList[models.Material](ctx, c, "/materials/")
}

// AssignMaterialCourse reassigns a material's course association.
// A nil courseID detaches the material (PATCH course: null).
func (c *Client) AssignMaterialCourse(ctx context.Context, materialID int, courseID *int) error {
	payload := map[string]any{"course": courseID}
	return c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/materials/%d/", materialID), payload, nil)
}

// UploadRequest describes a material upload.
type UploadRequest struct {
	// FileName is the name reported in the multipart form.
	FileName string
	// Content is the file body.
	Content io.Reader
	Title   string
	Course  int
	// Level is optional.
	Level *int
}

// UploadMaterial uploads a file as a new material via the multipart
// endpoint. Title defaults to the file name.
func (c *Client) UploadMaterial(ctx context.Context, req UploadRequest) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", req.FileName)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, req.Content); err != nil {
		return fmt.Errorf("failed to read upload content: %w", err)
	}

	if err := mw.WriteField("course", strconv.Itoa(req.Course)); err != nil {
		return fmt.Errorf("failed to write course field: %w", err)
	}
	title := req.Title
	if title == "" {
		title = req.FileName
	}
	if err := mw.WriteField("title", title); err != nil {
		return fmt.Errorf("failed to write title field: %w", err)
	}
	if req.Level != nil {
		if err := mw.WriteField("level", strconv.Itoa(*req.Level)); err != nil {
			return fmt.Errorf("failed to write level field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	resp, err := c.doRaw(ctx, http.MethodPost, "/materials/upload/", requestOptions{
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
		accept:      "application/json",
		file:        true, // uploads can be as large as downloads
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// ScanMaterials triggers server-side filesystem ingestion and returns
// the server's status message.
func (c *Client) ScanMaterials(ctx context.Context) (string, error) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/materials/scan_materials/", nil, &payload); err != nil {
		return "", err
	}
	if payload.Message == "" {
		payload.Message = "scan completed"
	}
	return payload.Message, nil
}

// OpenMaterialFile opens the authenticated binary stream for a
// material. The caller owns the returned body. accept drives content
// negotiation ("application/pdf", "audio/mpeg, audio/*"); empty means
// any type. 401 and 404 come back as distinct error kinds.
func (c *Client) OpenMaterialFile(ctx context.Context, id int, accept string) (io.ReadCloser, string, error) {
	if accept == "" {
		accept = "*/*"
	}

	resp, err := c.doRaw(ctx, http.MethodGet, fmt.Sprintf("/materials/%d/file/", id), requestOptions{
		accept: accept,
		file:   true,
	})
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, "", responseError(resp)
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// DownloadMaterial fetches a material's full binary content.
func (c *Client) DownloadMaterial(ctx context.Context, id int, accept string) ([]byte, string, error) {
	body, contentType, err := c.OpenMaterialFile(ctx, id, accept)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", connectionError(err)
	}
	return data, contentType, nil
}
