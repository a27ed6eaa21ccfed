package guild

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxResponseBytes caps response body reads. Guild structures for even
// the largest guilds are well under this.
const maxResponseBytes = 8 << 20

// RESTConfig holds configuration for creating a REST client.
type RESTConfig struct {
	// BaseURL is the API root, e.g. "https://discord.com/api/v10".
	BaseURL string
	// Token is the bot token sent on every request.
	Token string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// REST is an API implementation over the remote HTTP interface.
type REST struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ API = (*REST)(nil)

// NewREST creates a REST client for the remote guild API.
func NewREST(config RESTConfig) (*REST, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("guild: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("guild: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if config.Token == "" {
		return nil, fmt.Errorf("guild: Token is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &REST{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// FetchGuildStructure enumerates the guild's roles and channels in two
// read calls. The implicit base role shares the guild's ID.
func (r *REST) FetchGuildStructure(ctx context.Context, guildID string) (*Structure, error) {
	var roles []Role
	body, err := r.doRequest(ctx, http.MethodGet, "/guilds/"+guildID+"/roles", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching roles: %w", err)
	}
	if err := json.Unmarshal(body, &roles); err != nil {
		return nil, fmt.Errorf("parsing roles response: %w", err)
	}

	var channels []Channel
	body, err = r.doRequest(ctx, http.MethodGet, "/guilds/"+guildID+"/channels", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching channels: %w", err)
	}
	if err := json.Unmarshal(body, &channels); err != nil {
		return nil, fmt.Errorf("parsing channels response: %w", err)
	}

	return &Structure{
		GuildID:        guildID,
		EveryoneRoleID: guildID,
		Roles:          roles,
		Channels:       channels,
	}, nil
}

// CreateRole creates a role on the guild.
func (r *REST) CreateRole(ctx context.Context, guildID string, params RoleParams) (*Role, error) {
	body, err := r.doRequest(ctx, http.MethodPost, "/guilds/"+guildID+"/roles", params)
	if err != nil {
		return nil, fmt.Errorf("creating role %q: %w", params.Name, err)
	}

	var role Role
	if err := json.Unmarshal(body, &role); err != nil {
		return nil, fmt.Errorf("parsing role response: %w", err)
	}
	r.logger.Debug("created role", "guild_id", guildID, "role_id", role.ID, "name", role.Name)
	return &role, nil
}

// CreateCategory creates a category channel on the guild.
func (r *REST) CreateCategory(ctx context.Context, guildID string, params ChannelParams) (*Channel, error) {
	params.Type = ChannelTypeCategory
	return r.createChannel(ctx, guildID, params)
}

// CreateChannel creates a non-category channel on the guild.
func (r *REST) CreateChannel(ctx context.Context, guildID string, params ChannelParams) (*Channel, error) {
	return r.createChannel(ctx, guildID, params)
}

func (r *REST) createChannel(ctx context.Context, guildID string, params ChannelParams) (*Channel, error) {
	body, err := r.doRequest(ctx, http.MethodPost, "/guilds/"+guildID+"/channels", params)
	if err != nil {
		return nil, fmt.Errorf("creating channel %q: %w", params.Name, err)
	}

	var channel Channel
	if err := json.Unmarshal(body, &channel); err != nil {
		return nil, fmt.Errorf("parsing channel response: %w", err)
	}
	r.logger.Debug("created channel",
		"guild_id", guildID, "channel_id", channel.ID, "name", channel.Name, "type", channel.Type)
	return &channel, nil
}

// doRequest performs one HTTP round-trip. Success returns the body;
// 429 returns *RateLimitError with the server's retry-after hint;
// other non-2xx statuses return *APIError.
func (r *REST) doRequest(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("guild: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("guild: failed to create request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Authorization", "Bot "+r.token)

	response, err := r.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("guild: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("guild: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	if response.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(response, responseBody)
		r.logger.Warn("rate limited", "method", method, "path", path, "retry_after", retryAfter)
		return nil, &RateLimitError{RetryAfter: retryAfter}
	}

	apiErr := &APIError{StatusCode: response.StatusCode, Message: string(responseBody)}
	var parsed struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(responseBody, &parsed) == nil && parsed.Message != "" {
		apiErr.Code = parsed.Code
		apiErr.Message = parsed.Message
	}
	return nil, apiErr
}

// parseRetryAfter extracts the retry-after hint from a 429 response:
// the JSON body's retry_after field (fractional seconds) when present,
// the Retry-After header otherwise. Returns zero when the server gave
// no hint.
func parseRetryAfter(response *http.Response, body []byte) time.Duration {
	var parsed struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.RetryAfter > 0 {
		return time.Duration(parsed.RetryAfter * float64(time.Second))
	}
	if header := response.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.ParseFloat(header, 64); err == nil && seconds > 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return 0
}
