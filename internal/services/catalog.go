package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIURL   = "https://api.spotify.com/v1/"
)

// DefaultSearchLimit is the number of catalog results requested per search.
const DefaultSearchLimit = 5

// CatalogOptions configures a [CatalogClient].
type CatalogOptions struct {
	ClientID          string
	ClientSecret      string
	TokenURL          string       // defaults to the Spotify accounts service
	APIURL            string       // defaults to the Spotify Web API, must end in "/"
	SearchLimit       int          // defaults to [DefaultSearchLimit]
	RequestsPerSecond float64      // <= 0 disables limiting
	HTTPClient        *http.Client // used for token exchange and search, defaults to http.DefaultClient
	Logger            *log.Logger
}

// CatalogOptionsFromConfig maps the TOML configuration onto [CatalogOptions].
func CatalogOptionsFromConfig(cfg *shared.Config, logger *log.Logger) CatalogOptions {
	return CatalogOptions{
		ClientID:          cfg.Credentials.Spotify.ClientID,
		ClientSecret:      cfg.Credentials.Spotify.ClientSecret,
		TokenURL:          cfg.Credentials.Spotify.TokenURL,
		APIURL:            cfg.Credentials.Spotify.APIURL,
		SearchLimit:       cfg.Matching.SearchLimit,
		RequestsPerSecond: cfg.Credentials.Spotify.RequestsPerSecond,
		Logger:            logger,
	}
}

// CatalogClient searches the Spotify catalog using the client-credentials grant.
//
// The access token is instance state. It is obtained lazily on first use and exchanged again once it has
// expired. All token access goes through mu.
type CatalogClient struct {
	config      *clientcredentials.Config
	apiURL      string
	searchLimit int
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *log.Logger

	mu         sync.Mutex
	token      *oauth2.Token
	obtainedAt time.Time
}

// NewCatalogClient creates a [CatalogClient]. No network calls are made until the first search.
func NewCatalogClient(opts CatalogOptions) (*CatalogClient, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}

	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.APIURL == "" {
		opts.APIURL = spotifyAPIURL
	}
	if !strings.HasSuffix(opts.APIURL, "/") {
		opts.APIURL += "/"
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &CatalogClient{
		config: &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		},
		apiURL:      opts.APIURL,
		searchLimit: opts.SearchLimit,
		httpClient:  opts.HTTPClient,
		limiter:     limiter,
		logger:      opts.Logger.WithPrefix("catalog"),
	}, nil
}

// Authenticate returns a valid access token, exchanging client credentials when none is cached or the cached
// token has expired.
func (c *CatalogClient) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.token.Valid() {
		return c.token, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", shared.ErrUpstreamUnavailable, err)
	}

	c.token = token
	c.obtainedAt = time.Now()
	c.logger.Debug("obtained catalog token", "expires", token.Expiry)
	return token, nil
}

// TokenObtainedAt reports when the cached token was issued, or the zero time when there is none.
func (c *CatalogClient) TokenObtainedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.obtainedAt
}

// Search joins keywords into one query and returns up to the configured limit of tracks.
//
// Any failure is logged and yields an empty, non-nil slice.
func (c *CatalogClient) Search(ctx context.Context, keywords []string) []models.Track {
	tracks := []models.Track{}

	query := strings.TrimSpace(strings.Join(keywords, " "))
	if query == "" {
		return tracks
	}

	token, err := c.Authenticate(ctx)
	if err != nil {
		c.logger.Error("catalog authentication failed", "query", query, "error", err)
		return tracks
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("catalog search cancelled", "query", query, "error", err)
		return tracks
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: oauth2.StaticTokenSource(token), Base: c.httpClient.Transport},
		Timeout:   c.httpClient.Timeout,
	}
	client := spotify.New(httpClient, spotify.WithBaseURL(c.apiURL))

	result, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(c.searchLimit))
	if err != nil {
		c.logger.Error("catalog search failed", "query", query, "error", err)
		return tracks
	}

	if result.Tracks == nil {
		return tracks
	}

	for _, item := range result.Tracks.Tracks {
		tracks = append(tracks, trackFromSpotify(item))
	}

	c.logger.Debug("catalog search", "query", query, "results", len(tracks))
	return tracks
}

// trackFromSpotify maps a catalog search item onto a [models.Track].
func trackFromSpotify(item spotify.FullTrack) models.Track {
	track := models.Track{
		Title:          item.Name,
		Album:          item.Album.Name,
		SpotifyTrackID: string(item.ID),
		SpotifyURI:     string(item.URI),
	}

	if len(item.Artists) > 0 {
		track.Artist = item.Artists[0].Name
	}
	if item.PreviewURL != "" {
		preview := item.PreviewURL
		track.PreviewURL = &preview
	}
	if len(item.Album.Images) > 0 {
		art := item.Album.Images[0].URL
		track.AlbumArtURL = &art
	}

	return track
}
