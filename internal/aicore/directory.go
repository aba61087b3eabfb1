package aicore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DeploymentClient lists deployments through the AI Core lm API.
type DeploymentClient struct {
	BaseURL string
	Tokens  TokenIssuer
	HTTP    *http.Client
}

var _ Directory = (*DeploymentClient)(nil)

func NewDeploymentClient(baseURL string, tokens TokenIssuer, timeout time.Duration) *DeploymentClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DeploymentClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Tokens:  tokens,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type deploymentList struct {
	Count     int                `json:"count"`
	Resources []deploymentRecord `json:"resources"`
}

type deploymentRecord struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	DeploymentURL     string `json:"deploymentUrl"`
	ScenarioID        string `json:"scenarioId"`
	ConfigurationName string `json:"configurationName"`
	Status            string `json:"status"`
}

// ListDeployments returns the deployments in the order the API lists them.
func (c *DeploymentClient) ListDeployments(ctx context.Context, resourceGroup, scenarioID string) ([]Candidate, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("ai core base url is empty")
	}
	tok, err := c.Tokens.Token(ctx, resourceGroup)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("scenarioId", scenarioID)
	endpoint := c.BaseURL + "/v2/lm/deployments?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", bearerPrefix+strings.TrimPrefix(tok, bearerPrefix))
	req.Header.Set(HeaderResourceGroup, resourceGroup)
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("deployment query failed: status %d, body: %s", resp.StatusCode, string(b))
	}

	var out deploymentList
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode deployments: %w", err)
	}

	candidates := make([]Candidate, 0, len(out.Resources))
	for _, d := range out.Resources {
		candidates = append(candidates, Candidate{
			Name:          d.Name,
			ID:            d.ID,
			DeploymentURL: d.DeploymentURL,
		})
	}
	return candidates, nil
}
