// Package user describes the credentials that authenticate StarkBank requests.
package user

import (
	"fmt"
	"strings"

	"github.com/coachpo/starkbank/errs"
	"github.com/coachpo/starkbank/pkg/key"
)

// Environment selects the StarkBank deployment a user belongs to.
type Environment string

const (
	// Sandbox is the testing environment.
	Sandbox Environment = "sandbox"
	// Production is the live environment.
	Production Environment = "production"
)

// Host returns the API root for the environment.
func (e Environment) Host() string {
	if e == Production {
		return "https://api.starkbank.com/"
	}
	return "https://sandbox.api.starkbank.com/"
}

// ParseEnvironment validates an environment name.
func ParseEnvironment(raw string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(raw))) {
	case Sandbox:
		return Sandbox, nil
	case Production:
		return Production, nil
	default:
		return "", errs.Input("User", fmt.Sprintf("unknown environment %q, expected sandbox or production", raw))
	}
}

// User is the credential context threaded through every request.
type User interface {
	AccessID() string
	Environment() Environment
	PrivateKey() *key.PrivateKey
}

// Project authenticates as a single StarkBank project.
type Project struct {
	ID  string
	Env Environment
	Key *key.PrivateKey
}

// NewProject builds a project user from an id and a PEM private key.
func NewProject(env Environment, id, privateKeyPEM string) (*Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errs.Input("Project", "project id is required")
	}
	if _, err := ParseEnvironment(string(env)); err != nil {
		return nil, err
	}
	k, err := key.Load(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Project{ID: id, Env: env, Key: k}, nil
}

// AccessID implements User.
func (p *Project) AccessID() string { return "project/" + p.ID }

// Environment implements User.
func (p *Project) Environment() Environment { return p.Env }

// PrivateKey implements User.
func (p *Project) PrivateKey() *key.PrivateKey { return p.Key }

// Organization authenticates as an organization, optionally scoped to one workspace.
type Organization struct {
	ID          string
	WorkspaceID string
	Env         Environment
	Key         *key.PrivateKey
}

// NewOrganization builds an organization user from an id and a PEM private key.
func NewOrganization(env Environment, id, privateKeyPEM, workspaceID string) (*Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errs.Input("Organization", "organization id is required")
	}
	if _, err := ParseEnvironment(string(env)); err != nil {
		return nil, err
	}
	k, err := key.Load(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Organization{ID: id, WorkspaceID: strings.TrimSpace(workspaceID), Env: env, Key: k}, nil
}

// Replace returns a copy of the organization scoped to workspaceID.
func (o *Organization) Replace(workspaceID string) *Organization {
	clone := *o
	clone.WorkspaceID = strings.TrimSpace(workspaceID)
	return &clone
}

// AccessID implements User.
func (o *Organization) AccessID() string {
	if o.WorkspaceID != "" {
		return "organization/" + o.ID + "/workspace/" + o.WorkspaceID
	}
	return "organization/" + o.ID
}

// Environment implements User.
func (o *Organization) Environment() Environment { return o.Env }

// PrivateKey implements User.
func (o *Organization) PrivateKey() *key.PrivateKey { return o.Key }
