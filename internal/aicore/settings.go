package aicore

// HeaderResourceGroup is the tenant-scoping header every AI Core call carries.
const HeaderResourceGroup = "AI-Resource-Group"

const (
	DefaultResourceGroup = "default"
	DefaultScenarioID    = "foundation-models"
	DefaultAPIVersion    = "2023-05-15"
)

// Settings identifies where to look for a deployment. An empty
// DeploymentName means the first listed deployment is used.
type Settings struct {
	ResourceGroup  string
	ScenarioID     string
	DeploymentName string
	APIVersion     string
}

// DefaultHeaders returns the headers the chat client must send on every request.
func (s Settings) DefaultHeaders() map[string]string {
	return map[string]string{HeaderResourceGroup: s.ResourceGroup}
}

// Candidate is one entry of a deployment listing.
type Candidate struct {
	Name          string
	ID            string
	DeploymentURL string
}

// Key is the name used to match a configured deployment name: Name when
// present, ID otherwise.
func (c Candidate) Key() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

type ResolvedDeployment struct {
	DeploymentName string
	DeploymentURL  string
}
