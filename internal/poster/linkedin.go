// Package poster publishes finished job postings.
package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xaenox/jobpost-bot/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	DefaultAPIURL  = "https://api.linkedin.com/v2/ugcPosts"
	DefaultFeedURL = "https://www.linkedin.com/feed/update/"
)

// ErrMissingCredentials is returned when no access token or author URN is configured.
var ErrMissingCredentials = errors.New("LinkedIn credentials (access token or person URN) not configured")

// LinkedInOptions configures a LinkedInPoster.
type LinkedInOptions struct {
	AccessToken string
	AuthorURN   string
	APIURL      string
	FeedURL     string
	Timeout     time.Duration
}

// LinkedInPoster shares job postings through the LinkedIn UGC posts API.
type LinkedInPoster struct {
	client    *http.Client
	authorURN string
	apiURL    string
	feedURL   string
	logger    *zap.Logger
}

func NewLinkedInPoster(opts LinkedInOptions, logger *zap.Logger) *LinkedInPoster {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.FeedURL == "" {
		opts.FeedURL = DefaultFeedURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	var client *http.Client
	if opts.AccessToken != "" {
		base := &http.Client{Timeout: opts.Timeout}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken}))
	}

	return &LinkedInPoster{
		client:    client,
		authorURN: opts.AuthorURN,
		apiURL:    opts.APIURL,
		feedURL:   opts.FeedURL,
		logger:    logger,
	}
}

type shareCommentary struct {
	Text string `json:"text"`
}

type shareContent struct {
	ShareCommentary    shareCommentary `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

// PostText formats the public post for a set of job attributes.
func PostText(e models.Entities) string {
	get := func(a models.Attribute) string {
		if v, ok := e.Get(a); ok {
			return v
		}
		return "N/A"
	}
	return fmt.Sprintf("🚀 New Job Opportunity!\n\n"+
		"📌 Title: %s\n"+
		"🧠 Experience: %s\n"+
		"📍 Location: %s\n"+
		"🛠 Skills: %s\n"+
		"Job Type: %s\n\n"+
		"#Hiring #JobOpening #Careers",
		get(models.AttrJobTitle), get(models.AttrExperience), get(models.AttrLocation),
		get(models.AttrSkills), get(models.AttrJobType))
}

// Post publishes the job and returns the feed URL of the new post.
func (p *LinkedInPoster) Post(ctx context.Context, e models.Entities) (string, error) {
	if p.client == nil || p.authorURN == "" {
		p.logger.Error("LinkedIn credentials missing")
		return "", ErrMissingCredentials
	}

	payload := ugcPost{
		Author:         p.authorURN,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]shareContent{
			"com.linkedin.ugc.ShareContent": {
				ShareCommentary:    shareCommentary{Text: PostText(e)},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	p.logger.Info("Sending post to LinkedIn", zap.String("url", p.apiURL))
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post to LinkedIn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("failed: %d - %s", resp.StatusCode, string(respBody))
		p.logger.Error("LinkedIn rejected post", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return "", err
	}

	postID := resp.Header.Get("X-Restli-Id")
	if postID == "" {
		postID = "unknown"
	}
	postURL := p.feedURL + postID
	p.logger.Info("Posted to LinkedIn", zap.String("url", postURL))
	return postURL, nil
}
