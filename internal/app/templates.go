package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/pscheid92/guildboard/internal/domain"
	apperrors "github.com/pscheid92/guildboard/internal/platform/errors"
)

// SaveTemplate snapshots a category's direct children into a template named
// after the category. An existing template with that name is overwritten.
func (e *Executor) SaveTemplate(ctx context.Context, guildID, categoryID string) (result domain.ActionResult, err error) {
	ctx = context.WithoutCancel(ctx)
	defer e.observe(ctx, domain.ActionSaveTemplate, guildID, e.clock.Now(), &result, &err)
	result = domain.ActionResult{Action: domain.ActionSaveTemplate, GuildID: guildID}

	if err := requireIDs("guild ID", guildID, "category ID", categoryID); err != nil {
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

	tpl := domain.TemplateFromChannels(guildID, category.Name, view.ChildrenOf(categoryID))
	if err := e.templates.Save(ctx, tpl); err != nil {
		return result, templateError("failed to save template", err, category.Name)
	}

	result.Source = category.Name
	result.Target = category.Name
	result.Channels = len(tpl.Channels)
	return result, nil
}

// ApplyTemplate creates a new category from a stored template. A blank
// newName falls back to the template's category name. Channels are created
// without permission overwrites; the first failure stops the loop.
func (e *Executor) ApplyTemplate(ctx context.Context, guildID, templateName, newName string) (result domain.ActionResult, err error) {
	ctx = context.WithoutCancel(ctx)
	defer e.observe(ctx, domain.ActionApplyTemplate, guildID, e.clock.Now(), &result, &err)
	result = domain.ActionResult{Action: domain.ActionApplyTemplate, GuildID: guildID, Source: templateName}

	if err := requireIDs("guild ID", guildID, "template", templateName); err != nil {
		return result, err
	}

	tpl, err := e.templates.Load(ctx, templateName)
	if err != nil {
		return result, templateError("failed to load template", err, templateName)
	}
	for _, ch := range tpl.Channels {
		if !ch.Type.Valid() || ch.Type == domain.ChannelKindCategory {
			return result, apperrors.ValidationError(fmt.Sprintf("template channel %q has unsupported type %q", ch.Name, ch.Type)).
				WithField("template", templateName).
				WithMessage("error.template_channel_type", ch.Name, string(ch.Type))
		}
	}

	if newName == "" {
		newName = tpl.Category
	}
	newName, err = validateName("new name", newName)
	if err != nil {
		return result, err
	}

	// Confirms the guild exists before anything is created.
	if _, err := e.view(ctx, guildID); err != nil {
		return result, err
	}

	created, err := e.createChannel(ctx, guildID, domain.ChannelSpec{
		Name: newName,
		Kind: domain.ChannelKindCategory,
	})
	if err != nil {
		return result, apperrors.ExternalError("failed to create category", err).WithField("template", templateName).WithMessage("error.external.create_category")
	}
	result.Target = created.Name
	result.TargetID = created.ID

	for i, ch := range tpl.Channels {
		_, err := e.createChannel(ctx, guildID, domain.ChannelSpec{
			Name:             ch.Name,
			Kind:             ch.Type,
			ParentID:         created.ID,
			Topic:            ch.Topic,
			NSFW:             ch.NSFW,
			RateLimitPerUser: ch.RateLimitPerUser,
			Position:         i,
		})
		if err != nil {
			return result, partialFailure("failed to create channel", err, ch.Name, i, len(tpl.Channels)).
				WithField("category_id", created.ID)
		}
		result.Channels++
	}

	return result, nil
}

// DeleteTemplate removes a stored template.
func (e *Executor) DeleteTemplate(ctx context.Context, guildID, name string) (result domain.ActionResult, err error) {
	ctx = context.WithoutCancel(ctx)
	defer e.observe(ctx, domain.ActionDeleteTemplate, guildID, e.clock.Now(), &result, &err)
	result = domain.ActionResult{Action: domain.ActionDeleteTemplate, GuildID: guildID, Source: name}

	if err := requireID("template", name); err != nil {
		return result, err
	}
	if err := e.templates.Delete(ctx, name); err != nil {
		return result, templateError("failed to delete template", err, name)
	}
	return result, nil
}

// LoadTemplate returns a stored template.
func (e *Executor) LoadTemplate(ctx context.Context, name string) (*domain.Template, error) {
	if err := requireID("template", name); err != nil {
		return nil, err
	}
	tpl, err := e.templates.Load(ctx, name)
	if err != nil {
		return nil, templateError("failed to load template", err, name)
	}
	return tpl, nil
}

// ListTemplates returns the stored template names in sorted order.
func (e *Executor) ListTemplates(ctx context.Context) ([]string, error) {
	names, err := e.templates.List(ctx)
	if err != nil {
		return nil, apperrors.InternalError("failed to list templates", err)
	}
	return names, nil
}

func templateError(message string, err error, name string) *apperrors.Error {
	switch {
	case errors.Is(err, domain.ErrInvalidTemplateName):
		return apperrors.ValidationError("invalid template name").WithField("template", name).WithMessage("error.invalid_template_name")
	case errors.Is(err, domain.ErrTemplateNotFound):
		return apperrors.NotFoundError("template not found", err).WithField("template", name).WithMessage("error.not_found.template", name)
	default:
		return apperrors.InternalError(message, err).WithField("template", name)
	}
}
