package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/guildboard/internal/domain"
	apperrors "github.com/pscheid92/guildboard/internal/platform/errors"
	"github.com/pscheid92/guildboard/internal/platform/logging"
)

// MaxNameLength is the longest channel, role or category name Discord accepts.
const MaxNameLength = 100

// ActionRecorder receives one observation per finished action.
type ActionRecorder interface {
	RecordAction(action, outcome string, channels int, duration time.Duration)
}

// Executor runs dashboard actions against one guild at a time.
type Executor struct {
	directory domain.GuildDirectory
	manager   domain.GuildManager
	templates domain.TemplateRepository
	recorder  ActionRecorder
	clock     clockwork.Clock
	timeout   time.Duration
}

// NewExecutor creates the executor. timeout bounds each external call on
// its own; an action as a whole has no deadline.
func NewExecutor(directory domain.GuildDirectory, manager domain.GuildManager, templates domain.TemplateRepository, recorder ActionRecorder, clock clockwork.Clock, timeout time.Duration) *Executor {
	return &Executor{
		directory: directory,
		manager:   manager,
		templates: templates,
		recorder:  recorder,
		clock:     clock,
		timeout:   timeout,
	}
}

// GuildView returns the current view of guildID for rendering.
func (e *Executor) GuildView(ctx context.Context, guildID string) (*domain.GuildView, error) {
	if err := requireID("guild ID", guildID); err != nil {
		return nil, err
	}
	return e.view(ctx, guildID)
}

// CloneCategory creates a copy of a category right after the source,
// including every direct child channel with its permission overwrites.
// The first failing child stops the loop; created channels are kept.
func (e *Executor) CloneCategory(ctx context.Context, guildID, categoryID, newName string) (result domain.ActionResult, err error) {
	ctx = context.WithoutCancel(ctx)
	defer e.observe(ctx, domain.ActionCloneCategory, guildID, e.clock.Now(), &result, &err)
	result = domain.ActionResult{Action: domain.ActionCloneCategory, GuildID: guildID}

	if err := requireIDs("guild ID", guildID, "category ID", categoryID); err != nil {
		return result, err
	}
	newName, err = validateName("new name", newName)
	if err != nil {
		return result, err
	}

	view, err := e.view(ctx, guildID)
	if err != nil {
		return result, err
	}
	category, ok := view.Category(categoryID)
	if !ok {
		return result, apperrors.NotFoundError("category not found", domain.ErrCategoryNotFound).WithField("category_id", categoryID).WithMessage("error.not_found.category")
	}
	children := view.ChildrenOf(categoryID)
	result.Source = category.Name

	created, err := e.createChannel(ctx, guildID, domain.ChannelSpec{
		Name:     newName,
		Kind:     domain.ChannelKindCategory,
		Position: category.Position + 1,
	})
	if err != nil {
		return result, apperrors.ExternalError("failed to create category", err).WithField("category_id", categoryID).WithMessage("error.external.create_category")
	}
	result.Target = created.Name
	result.TargetID = created.ID

	for i, child := range children {
		_, err := e.createChannel(ctx, guildID, domain.ChannelSpec{
			Name:             child.Name,
			Kind:             child.Kind,
			ParentID:         created.ID,
			Topic:            child.Topic,
			NSFW:             child.NSFW,
			RateLimitPerUser: child.RateLimitPerUser,
			Position:         child.Position,
			Overwrites:       child.Overwrites,
		})
		if err != nil {
			return result, partialFailure("failed to create channel", err, child.Name, i, len(children)).
				WithField("category_id", created.ID)
		}
		result.Channels++
	}

	return result, nil
}

// CloneRole creates a role with the same color, hoist, permissions and
// mentionable flag as the source.
func (e *Executor) CloneRole(ctx context.Context, guildID, roleID, newName string) (result domain.ActionResult, err error) {
	ctx = context.WithoutCancel(ctx)
	defer e.observe(ctx, domain.ActionCloneRole, guildID, e.clock.Now(), &result, &err)
	result = domain.ActionResult{Action: domain.ActionCloneRole, GuildID: guildID}

	if err := requireIDs("guild ID", guildID, "role ID", roleID); err != nil {
		return result, err
	}
	newName, err = validateName("new name", newName)
	if err != nil {
		return result, err
	}

	view, err := e.view(ctx, guildID)
	if err != nil {
		return result, err
	}
	role, ok := view.Role(roleID)
	if !ok {
		return result, apperrors.NotFoundError("role not found", domain.ErrRoleNotFound).WithField("role_id", roleID).WithMessage("error.not_found.role")
	}
	result.Source = role.Name

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	created, err := e.manager.CreateRole(callCtx, guildID, domain.RoleSpec{
		Name:        newName,
		Color:       role.Color,
		Hoist:       role.Hoist,
		Permissions: role.Permissions,
		Mentionable: role.Mentionable,
	})
	if err != nil {
		return result, apperrors.ExternalError("failed to create role", err).WithField("role_id", roleID).WithMessage("error.external.create_role")
	}

	result.Target = created.Name
	result.TargetID = created.ID
	return result, nil
}

// CopyPermissions replaces the target channel's overwrites with the
// source's. Applying it repeatedly yields the same overwrite set.
func (e *Executor) CopyPermissions(ctx context.Context, guildID, fromChannelID, toChannelID string) (result domain.ActionResult, err error) {
	ctx = context.WithoutCancel(ctx)
	defer e.observe(ctx, domain.ActionCopyPermissions, guildID, e.clock.Now(), &result, &err)
	result = domain.ActionResult{Action: domain.ActionCopyPermissions, GuildID: guildID}

	if err := requireIDs("guild ID", guildID, "source channel ID", fromChannelID, "target channel ID", toChannelID); err != nil {
		return result, err
	}

	view, err := e.view(ctx, guildID)
	if err != nil {
		return result, err
	}
	from, ok := view.Channel(fromChannelID)
	if !ok {
		return result, apperrors.NotFoundError("source channel not found", domain.ErrChannelNotFound).WithField("channel_id", fromChannelID).WithMessage("error.not_found.source_channel")
	}
	to, ok := view.Channel(toChannelID)
	if !ok {
		return result, apperrors.NotFoundError("target channel not found", domain.ErrChannelNotFound).WithField("channel_id", toChannelID).WithMessage("error.not_found.target_channel")
	}
	result.Source = from.Name
	result.Target = to.Name
	result.TargetID = to.ID

	overwrites := make([]domain.PermissionOverwrite, len(from.Overwrites))
	copy(overwrites, from.Overwrites)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.manager.ReplaceOverwrites(callCtx, to.ID, overwrites); err != nil {
		return result, apperrors.ExternalError("failed to update permissions", err).WithField("channel_id", to.ID).WithMessage("error.external.update_permissions")
	}
	return result, nil
}

func (e *Executor) view(ctx context.Context, guildID string) (*domain.GuildView, error) {
	view, err := e.directory.GuildView(ctx, guildID)
	if errors.Is(err, domain.ErrGuildNotFound) {
		return nil, apperrors.NotFoundError("guild not found", err).WithField("guild_id", guildID).WithMessage("error.not_found.guild")
	}
	if err != nil {
		return nil, apperrors.ExternalError("failed to read guild", err).WithField("guild_id", guildID).WithMessage("error.external.read_guild")
	}
	return view, nil
}

func (e *Executor) createChannel(ctx context.Context, guildID string, spec domain.ChannelSpec) (*domain.Channel, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.manager.CreateChannel(callCtx, guildID, spec)
}

// observe records metrics and one log line for a finished action.
func (e *Executor) observe(ctx context.Context, action domain.ActionKind, guildID string, start time.Time, result *domain.ActionResult, err *error) {
	duration := e.clock.Since(start)

	outcome := ""
	if *err != nil {
		outcome = string(apperrors.AsStructuredError(*err).Type)
	}
	if e.recorder != nil {
		e.recorder.RecordAction(string(action), outcome, result.Channels, duration)
	}

	logger := logging.WithGuild(slog.Default(), guildID)
	attrs := []any{
		"action", action,
		"source", result.Source,
		"target", result.Target,
		"channels", result.Channels,
		"duration_ms", duration.Milliseconds(),
	}
	if *err != nil {
		structured := apperrors.AsStructuredError(*err)
		attrs = append(attrs, "error_type", structured.Type, "error", structured.Error())
		for k, v := range structured.Context {
			attrs = append(attrs, k, v)
		}
		logger.WarnContext(ctx, "Action failed", attrs...)
		return
	}
	logger.InfoContext(ctx, "Action completed", attrs...)
}

func partialFailure(message string, cause error, channel string, created, total int) *apperrors.Error {
	return apperrors.ExternalError(message, cause).
		WithField("channel", channel).
		WithField("created", created).
		WithField("total", total).
		WithMessage("error.partial", channel, created, total)
}

func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.ValidationError(field+" is required").WithField("field", field).WithMessage(requiredKey(field))
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", apperrors.ValidationError(fmt.Sprintf("%s must be at most %d characters", field, MaxNameLength)).
			WithField("field", field).
			WithMessage("error.too_long."+messageField(field), MaxNameLength)
	}
	return name, nil
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.ValidationError(field+" is required").WithField("field", field).WithMessage(requiredKey(field))
	}
	return nil
}

// messageField turns a field label like "guild ID" into a catalog key
// segment like "guild_id".
func messageField(field string) string {
	return strings.ReplaceAll(strings.ToLower(field), " ", "_")
}

func requiredKey(field string) string {
	return "error.required." + messageField(field)
}

// requireIDs takes field/value pairs.
func requireIDs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := requireID(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}
