// Package ipfs is the HTTP client for the pinning service that stores
// asset files. Uploads go to a Pinata-compatible pinning endpoint and
// downloads come back through a public gateway.
package ipfs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Config points the client at a pinning service. Endpoint is the pinning
// API base URL, Gateway the public read gateway, and the key pair is the
// Pinata-style credential sent with every upload.
type Config struct {
	Endpoint  string
	Gateway   string
	APIKey    string
	APISecret string
}

type Client struct {
	client *http.Client
	cfg    Config
	log    *zap.Logger
}

// ServiceError is a non-2xx reply from the pinning service or the gateway,
// carrying the upstream status so the caller can pass it through.
type ServiceError struct {
	status int
	msg    string
}

func (e *ServiceError) Status() int {
	return e.status
}

func (e *ServiceError) Error() string {
	return e.msg
}

func New(cfg Config, log *zap.Logger) *Client {
	return &Client{
		client: &http.Client{Timeout: 30 * time.Second},
		cfg:    cfg,
		log:    log,
	}
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// Upload pins a file and returns its CID.
func (c *Client) Upload(filename string, content []byte) (string, error) {
	url := c.cfg.Endpoint + "/pinning/pinFileToIPFS"

	req, err := c.newFileUploadRequest(url, "file", filename, content)
	if err != nil {
		return "", err
	}
	req.Header.Set("pinata_api_key", c.cfg.APIKey)
	req.Header.Set("pinata_secret_api_key", c.cfg.APISecret)

	var reply pinResponse
	if err := c.submitReqWithJSONResp(req, &reply); err != nil {
		return "", err
	}

	if reply.IpfsHash == "" {
		return "", fmt.Errorf("pinning service returned no CID")
	}
	return reply.IpfsHash, nil
}

// Download fetches the content behind a CID from the gateway. The filename
// comes from the Content-Disposition header when the gateway sets one.
func (c *Client) Download(cid string) (string, []byte, error) {
	url := c.GatewayURL(cid)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		c.log.Error("ipfs request failed", zap.String("url", url), zap.Error(err))
		return "", nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("ipfs download failed", zap.String("url", url), zap.Error(err))
		return "", nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("ipfs download failed", zap.String("url", url), zap.Error(err))
		return "", nil, err
	}

	if resp.StatusCode/100 != 2 {
		return "", nil, &ServiceError{resp.StatusCode, string(data)}
	}

	filename := cid
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name, ok := params["filename"]; ok {
			filename = name
		}
	}

	return filename, data, nil
}

// GatewayURL is the public read URL for a CID.
func (c *Client) GatewayURL(cid string) string {
	return fmt.Sprintf("%s/ipfs/%s", c.cfg.Gateway, cid)
}

func (c *Client) newFileUploadRequest(url, fieldname, filename string, filecontent []byte) (*http.Request, error) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fieldname, filepath.Base(filename))
	if err != nil {
		c.log.Error("ipfs request failed", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	if _, err = part.Write(filecontent); err != nil {
		c.log.Error("ipfs request failed", zap.String("url", url), zap.Error(err))
		return nil, err
	}

	if err = writer.Close(); err != nil {
		c.log.Error("ipfs request failed", zap.String("url", url), zap.Error(err))
		return nil, err
	}

	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

func (c *Client) submitReqWithJSONResp(req *http.Request, reply interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("ipfs request failed", zap.String("url", req.URL.String()), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("ipfs request failed", zap.String("url", req.URL.String()), zap.Error(err))
		return err
	}

	if resp.StatusCode/100 != 2 {
		return &ServiceError{resp.StatusCode, string(data)}
	}

	if reply != nil {
		if err = json.Unmarshal(data, reply); err != nil {
			c.log.Error("ipfs unexpected response", zap.String("url", req.URL.String()), zap.String("body", string(data)))
			return err
		}
	}

	return nil
}
