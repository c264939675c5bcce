package generate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SpeechConfig parameterizes the narration backend.
type SpeechConfig struct {
	Endpoint    string
	AppID       string
	AccessToken string
	Voice       string
	Speed       float32
	Volume      float32
}

// SpeechClient narrates the final prose over the speech backend's
// websocket stream and stores the resulting mp3 under the media directory.
// Synchronous contract: the call returns once the full narration is
// assembled or failed.
type SpeechClient struct {
	cfg       SpeechConfig
	dialer    *websocket.Dialer
	mediaDir  string
	publicURL string
}

// NewSpeechClient builds a narration client writing files into mediaDir
// and returning URLs under publicURL.
func NewSpeechClient(cfg SpeechConfig, mediaDir, publicURL string) *SpeechClient {
	return &SpeechClient{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
		mediaDir:  mediaDir,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

type ttsRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string `json:"speaker"`
		Text        string `json:"text"`
		AudioParams struct {
			Format      string  `json:"format"`
			SampleRate  int     `json:"sample_rate"`
			SpeedRatio  float32 `json:"speed_ratio,omitempty"`
			VolumeRatio float32 `json:"volume_ratio,omitempty"`
		} `json:"audio_params"`
	} `json:"req_params"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
}

// Generate synthesizes req.ProseText and returns the stored audio URL.
func (c *SpeechClient) Generate(ctx context.Context, req Request) (string, error) {
	text := strings.TrimSpace(req.ProseText)
	if text == "" {
		return "", genErr(ErrMissingOutput, "narration requested without prose text", nil)
	}

	audio, err := c.synthesize(ctx, text)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ".mp3"
	if err := os.MkdirAll(c.mediaDir, 0o755); err != nil {
		return "", genErr(ErrRemoteFailure, "create media dir", err)
	}
	if err := os.WriteFile(filepath.Join(c.mediaDir, name), audio, 0o644); err != nil {
		return "", genErr(ErrRemoteFailure, "store narration audio", err)
	}

	log.Printf("[tts] stored narration %s (%d bytes)", name, len(audio))
	return path.Join(c.publicURL, name), nil
}

// synthesize runs one websocket exchange: send the request, accumulate
// base64 audio chunks until the server marks the last packet with a
// negative sequence.
func (c *SpeechClient) synthesize(ctx context.Context, text string) ([]byte, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", c.cfg.AppID)
	header.Set("X-Api-Access-Key", c.cfg.AccessToken)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.Endpoint, header)
	if err != nil {
		return nil, genErr(ErrRemoteFailure, "connect speech backend", err)
	}
	defer conn.Close()

	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[tts] connected with logid: %s", logid)
		}
	}

	payload := c.buildRequest(connectID, text)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, genErr(ErrRemoteFailure, "encode speech request", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return nil, genErr(ErrRemoteFailure, "send speech request", err)
	}

	var audio []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, genErr(ErrRemoteFailure, "narration canceled", err)
		}

		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetReadDeadline(deadline)
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, genErr(ErrRemoteFailure, "read speech response", err)
		}

		var msg ttsServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, genErr(ErrRemoteFailure, "decode speech response", err)
		}

		if msg.Code != 0 && msg.Code != 3000 {
			return nil, genErr(ErrRemoteFailure,
				fmt.Sprintf("speech backend error %d: %s", msg.Code, msg.Message), nil)
		}

		if msg.Data != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				return nil, genErr(ErrRemoteFailure, "decode audio chunk", err)
			}
			audio = append(audio, chunk...)
		}

		if msg.Sequence < 0 {
			if len(audio) == 0 {
				return nil, genErr(ErrMissingOutput, "speech backend finished with no audio", nil)
			}
			return audio, nil
		}
	}
}

func (c *SpeechClient) buildRequest(uid, text string) *ttsRequest {
	req := &ttsRequest{}
	req.User.UID = uid
	req.ReqParams.Speaker = c.cfg.Voice
	req.ReqParams.Text = text
	req.ReqParams.AudioParams.Format = "mp3"
	req.ReqParams.AudioParams.SampleRate = 24000
	if c.cfg.Speed > 0 && c.cfg.Speed != 1.0 {
		req.ReqParams.AudioParams.SpeedRatio = c.cfg.Speed
	}
	if c.cfg.Volume > 0 && c.cfg.Volume != 1.0 {
		req.ReqParams.AudioParams.VolumeRatio = c.cfg.Volume
	}
	return req
}
