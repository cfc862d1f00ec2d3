package kasuki

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const activityCoverFilename = "cover.png"

// SweepActivities notifies every guild with an activity due at or before
// now, then advances each activity to its next episode, or removes it
// when the anime has no further episodes. Failures for one activity are
// logged, and don't stop the others. Activities with a delay are
// notified from a separate goroutine once the delay has passed, so this
// only waits on activities without a delay.
func (b *Bot) SweepActivities(ctx context.Context, now time.Time) error {
	logger := contextLoggerOr(ctx, b.logger).With(loggerNameKey, "activity")
	ctx = WithLogger(ctx, logger)

	activities, err := b.store.GetScheduledActivities(ctx, now.Unix())
	if err != nil {
		logger.ErrorContext(ctx, "error getting scheduled activities", tint.Err(err))
		return err
	}
	if len(activities) == 0 {
		return nil
	}
	logger.DebugContext(ctx, "activities due", "count", len(activities))

	wg := &sync.WaitGroup{}
	for _, activity := range activities {
		activity := activity
		key := activity.AnimeID + "/" + activity.GuildID
		if _, running := b.activitiesInFlight.LoadOrStore(key, struct{}{}); running {
			// still waiting out its delay from a previous sweep
			continue
		}

		delay := time.Until(time.Unix(activity.AiringTimestamp+activity.DelaySeconds, 0))
		if activity.DelaySeconds <= 0 || delay <= 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer b.activitiesInFlight.Delete(key)
				b.runActivity(ctx, activity)
			}()
			continue
		}

		b.runtimeWG.Add(1)
		go func() {
			defer b.runtimeWG.Done()
			defer b.activitiesInFlight.Delete(key)
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				logger.InfoContext(ctx, "context canceled waiting on activity delay", "activity", activity)
				return
			case <-t.C:
				b.runActivity(ctx, activity)
			}
		}()
	}
	wg.Wait()
	return nil
}

// runActivity sends a single activity's notification, and updates or
// removes its row
func (b *Bot) runActivity(ctx context.Context, activity ScheduledActivity) {
	logger := contextLoggerOr(ctx, b.logger).With("activity", activity)
	ctx = WithLogger(ctx, logger)
	defer func() {
		if rc := recover(); rc != nil {
			handleRecover(ctx, rc)
		}
	}()

	if err := b.sendActivity(ctx, activity); err != nil {
		logger.ErrorContext(ctx, "error sending activity", tint.Err(err))
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil &&
			restErr.Response.StatusCode == http.StatusNotFound {
			// the webhook (or its channel) was deleted
			if rmErr := b.store.RemoveScheduledActivity(
				ctx,
				activity.AnimeID,
				activity.GuildID,
			); rmErr != nil {
				logger.ErrorContext(ctx, "error removing activity", tint.Err(rmErr))
			}
			return
		}
	}

	if err := b.advanceActivity(ctx, activity); err != nil {
		logger.ErrorContext(ctx, "error updating activity", tint.Err(err))
	}
}

// sendActivity posts the "episode aired" embed through the activity's
// webhook, if the guild has the ANIME module enabled
func (b *Bot) sendActivity(ctx context.Context, activity ScheduledActivity) error {
	enabled, err := b.ModuleEnabled(ctx, activity.GuildID, ModuleAnime)
	if err != nil {
		return err
	}
	if !enabled {
		contextLoggerOr(ctx, b.logger).InfoContext(ctx, "anime module disabled, skipping notification")
		return nil
	}

	webhookID, token, err := parseWebhookURL(activity.WebhookURL)
	if err != nil {
		return err
	}

	lang := b.guildLanguage(ctx, activity.GuildID)
	e := newEmbed().
		title(activity.Name).
		url("https://anilist.co/anime/" + activity.AnimeID).
		description(b.localizer.T(lang, msgActivityAired, activity.Episode, activity.Name))
	params := e.webhookParams("", "")
	if activity.AvatarImageBase64 != "" {
		if data, decodeErr := base64.StdEncoding.DecodeString(activity.AvatarImageBase64); decodeErr == nil {
			params.Files = []*discordgo.File{
				{Name: activityCoverFilename, Reader: bytes.NewReader(data)},
			}
			e.thumbnail("attachment://" + activityCoverFilename)
		}
	}

	if _, err = b.discord.session.WebhookExecute(
		webhookID,
		token,
		false,
		params,
		discordgo.WithContext(ctx),
	); err != nil {
		return newError(ErrKindSending, "sendActivity", err)
	}
	contextLoggerOr(ctx, b.logger).InfoContext(ctx, "sent activity")
	return nil
}

// advanceActivity moves the activity to the anime's next airing episode,
// or removes it if there isn't one
func (b *Bot) advanceActivity(ctx context.Context, activity ScheduledActivity) error {
	logger := contextLoggerOr(ctx, b.logger)
	animeID, err := strconv.Atoi(activity.AnimeID)
	if err != nil {
		logger.WarnContext(ctx, "invalid anime id, removing activity", tint.Err(err))
		return b.store.RemoveScheduledActivity(ctx, activity.AnimeID, activity.GuildID)
	}

	m, err := b.anilist.NextAiring(ctx, animeID)
	switch {
	case errorKind(err) == ErrKindMissing:
		m = &Media{}
	case err != nil:
		return err
	}

	next := m.NextAiringEpisode
	if next == nil || next.AiringAt <= activity.AiringTimestamp {
		logger.InfoContext(ctx, "no further episodes, removing activity")
		return b.store.RemoveScheduledActivity(ctx, activity.AnimeID, activity.GuildID)
	}

	activity.AiringTimestamp = next.AiringAt
	activity.Episode = strconv.Itoa(next.Episode)
	if title := m.Title.Preferred(); title != "" {
		activity.Name = title
	}
	logger.LogAttrs(
		ctx,
		slog.LevelInfo,
		"advancing activity",
		slog.String("episode", activity.Episode),
		slog.Int64(columnAiringTimestamp, activity.AiringTimestamp),
	)
	return b.store.SetScheduledActivity(ctx, activity)
}
