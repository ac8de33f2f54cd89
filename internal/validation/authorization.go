package validation

import (
	"context"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/logging"
	"github.com/lucasilverentand/repo-agents/internal/model"
)

// AuthorizationCheck decides whether the triggering actor may run the agent.
// Rules are evaluated in strict order, first match wins:
//
//  1. actor listed in allowed_users or allowed_actors
//  2. actor is a member of any allowed team (OR across teams)
//  3. actor holds admin or write repository permission
//  4. actor owns the repository (personal-repo shortcut, recorded as admin)
//  5. actor is an org member without any of the above → denied "read-only"
//  6. otherwise → denied "not authorized"
//
// Lookup failures count as a negative result for that rule: authorization
// fails closed.
type AuthorizationCheck struct {
	client githubapi.Client
	logger *logging.Logger
}

func NewAuthorizationCheck(client githubapi.Client, logger *logging.Logger) *AuthorizationCheck {
	return &AuthorizationCheck{client: client, logger: logger}
}

// Policy is fail-closed: an Unknown outcome resolves to deny. The check itself
// only returns Unknown when it cannot even begin (nil client); individual
// lookup failures degrade to "rule did not match" instead.
const AuthorizationPolicy = FailClosed

func (c *AuthorizationCheck) Check(ctx context.Context, def *model.AgentDefinition, vctx model.ValidationContext) Outcome {
	actor := vctx.Actor

	for _, u := range def.AllowedUsers {
		if u == actor {
			return Allow()
		}
	}
	for _, a := range def.AllowedActors {
		if a == actor {
			return Allow()
		}
	}

	org := vctx.Repository.Owner
	for _, team := range def.AllowedTeams {
		member, err := c.client.IsTeamMember(ctx, org, team, actor)
		if err != nil {
			c.logger.Warnf("authorization team_lookup_failed team=%s/%s actor=%s err=%v", org, team, actor, err)
			continue
		}
		if member {
			return Allow()
		}
	}

	perm, err := c.client.RepositoryPermission(ctx, vctx.Repository, actor)
	if err != nil {
		c.logger.Warnf("authorization permission_lookup_failed repo=%s actor=%s err=%v", vctx.Repository, actor, err)
		perm = githubapi.PermissionNone
	}
	if perm == githubapi.PermissionAdmin || perm == githubapi.PermissionWrite {
		out := Allow()
		out.Permission = string(perm)
		return out
	}

	if vctx.Repository.Owner == actor {
		out := Allow()
		out.Permission = string(githubapi.PermissionAdmin)
		return out
	}

	orgMember, err := c.client.IsOrgMember(ctx, org, actor)
	if err != nil {
		c.logger.Warnf("authorization org_lookup_failed org=%s actor=%s err=%v", org, actor, err)
		orgMember = false
	}
	if orgMember {
		// Distinct reason so audit logs separate "in the org but read-only"
		// from complete outsiders.
		return Deny("actor %q has read-only access to %s", actor, vctx.Repository)
	}
	return Deny("actor %q is not authorized to run agent %q", actor, def.Name)
}
