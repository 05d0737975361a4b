package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"

	"github.com/anatolykoptev/go_stream/internal/engine"
)

// YouTube Innertube API: constants, client contexts and HTTP primitives.

const (
	ytPlayerPath     = "/youtubei/v1/player"
	ytNextPath       = "/youtubei/v1/next"
	ytWebVersion     = "2.20250222.10.00"
	ytAndroidVersion = "20.10.38"
	ytAndroidUA      = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"

	ytMaxResponseBytes = 3 * 1024 * 1024
)

// ytClient is one Innertube client identity. ANDROID answers /player with
// unciphered stream URLs; WEB carries the microformat and the watch-next feed.
type ytClient struct {
	Name       string
	Version    string
	HeaderID   string // X-Youtube-Client-Name
	UserAgent  string
	AndroidSDK int
}

var (
	ytAndroid = ytClient{Name: "ANDROID", Version: ytAndroidVersion, HeaderID: "3", UserAgent: ytAndroidUA, AndroidSDK: 30}
	ytWeb     = ytClient{Name: "WEB", Version: ytWebVersion, HeaderID: "1", UserAgent: engine.UserAgentChrome}
)

type innertubeClientCtx struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	VisitorData       string `json:"visitorData,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type innertubeCtx struct {
	Client  innertubeClientCtx `json:"client"`
	User    *ytWebUser         `json:"user,omitempty"`
	Request *ytWebReqCtx       `json:"request,omitempty"`
}

type ytWebUser struct {
	EnableSafetyMode bool `json:"enableSafetyMode"`
}

type ytWebReqCtx struct {
	UseSsl bool `json:"useSsl"`
}

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk,omitempty"`
	ContentCheckOk bool         `json:"contentCheckOk,omitempty"`
}

// generateVisitorData creates a random 11-char visitor ID for Innertube requests.
func generateVisitorData() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))] //nolint:gosec // non-cryptographic use
	}
	return string(b)
}

// newInnertubeReq builds the request body for videoID as seen by client.
func newInnertubeReq(c ytClient, videoID, hl, gl, visitorData string) innertubeReq {
	req := innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClientCtx{
				ClientName:        c.Name,
				ClientVersion:     c.Version,
				AndroidSdkVersion: c.AndroidSDK,
				VisitorData:       visitorData,
				Hl:                hl,
				Gl:                gl,
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}
	if c.Name == ytWeb.Name {
		req.Context.User = &ytWebUser{EnableSafetyMode: false}
		req.Context.Request = &ytWebReqCtx{UseSsl: true}
	}
	return req
}

// postInnerTube POSTs payload to an Innertube endpoint under baseURL with the
// headers of client c. Transient failures are retried with rc.
func postInnerTube(ctx context.Context, hc *http.Client, rc engine.RetryConfig, baseURL, path string, c ytClient, payload innertubeReq) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := baseURL + path

	resp, err := engine.RetryHTTP(ctx, rc, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?prettyPrint=false", bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "*/*")
		req.Header.Set("User-Agent", c.UserAgent)
		req.Header.Set("X-Youtube-Client-Name", c.HeaderID)
		req.Header.Set("X-Youtube-Client-Version", c.Version)
		if v := payload.Context.Client.VisitorData; v != "" {
			req.Header.Set("X-Goog-Visitor-Id", v)
		}
		if c.Name == ytWeb.Name {
			req.Header.Set("Origin", ytCanonicalOrigin)
			req.Header.Set("Referer", ytCanonicalOrigin+"/")
		}
		return hc.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("innertube %s [%s]: %w", c.Name, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("innertube %s [%s]: %w", c.Name, path, &engine.StatusError{Code: resp.StatusCode, Body: string(snippet)})
	}
	return io.ReadAll(io.LimitReader(resp.Body, ytMaxResponseBytes))
}
