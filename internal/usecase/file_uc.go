package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"telegram-file-vault/internal/config"
	"telegram-file-vault/internal/domain"
	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/domain/ports/adapter"
	"telegram-file-vault/internal/domain/ports/repository"
	"telegram-file-vault/internal/infra/cache"
	"telegram-file-vault/internal/infra/logging"
	"telegram-file-vault/internal/infra/metrics"
)

// Compile-time check
var _ FileUseCase = (*fileUC)(nil)

const (
	deliveryChunk = 5
	chunkPause    = 500 * time.Millisecond
	searchLimit   = 10
)

// ErrDeliveryFailed is returned when a single file could not be copied.
var ErrDeliveryFailed = errors.New("failed to send file")

// Incoming is an admin message to be stored.
type Incoming struct {
	ChatID    int64
	MessageID int
	Media     model.MediaType
	Caption   string
}

// StoreResult describes a stored file and whether it joined an open batch.
type StoreResult struct {
	File    *model.File
	Link    string
	InBatch bool
}

// DeliverRequest asks to send a file or batch to a chat.
type DeliverRequest struct {
	ID      string
	ChatID  int64
	UserID  int64
	InGroup bool
}

// DeliveryReport summarises what was sent for a /start <id> request.
type DeliveryReport struct {
	Batch   bool
	Total   int
	Sent    int
	Missing int
}

type FileUseCase interface {
	Store(ctx context.Context, adminID int64, in Incoming) (*StoreResult, error)
	StartBatch(ctx context.Context, adminID int64) error
	// EndBatch saves the open batch; domain.ErrNoActiveBatch when there is none.
	EndBatch(ctx context.Context, adminID int64) (*model.Batch, string, error)
	BeginRename(ctx context.Context, adminID int64) error
	// ConsumeRename takes text as the pending name when a rename is awaited.
	ConsumeRename(ctx context.Context, adminID int64, text string) (bool, error)
	// Deliver sends a file or every file of a batch; domain.ErrNotFound when the
	// id matches neither.
	Deliver(ctx context.Context, req DeliverRequest) (*DeliveryReport, error)
	Search(ctx context.Context, raw string, chatID, userID int64, inGroup bool) ([]*model.File, error)
	Link(id string) string
}

type fileUC struct {
	files    repository.FileRepository
	batches  repository.BatchRepository
	states   repository.StateRepository
	groups   GroupUseCase
	msg      adapter.Messenger
	cache    cache.Store
	rec      cache.Recorder
	cfg      *config.Config
	pause    time.Duration
	sessions *sessionLocks
	log      *zerolog.Logger
}

func NewFileUseCase(files repository.FileRepository, batches repository.BatchRepository, states repository.StateRepository, groups GroupUseCase, msg adapter.Messenger, store cache.Store, rec cache.Recorder, cfg *config.Config, logger *zerolog.Logger) *fileUC {
	return &fileUC{
		files:    files,
		batches:  batches,
		states:   states,
		groups:   groups,
		msg:      msg,
		cache:    store,
		rec:      rec,
		cfg:      cfg,
		pause:    chunkPause,
		sessions: newSessionLocks(),
		log:      logger,
	}
}

func (f *fileUC) Link(id string) string {
	return fmt.Sprintf("t.me/%s?start=%s", f.msg.BotUsername(), id)
}

func (f *fileUC) Store(ctx context.Context, adminID int64, in Incoming) (*StoreResult, error) {
	defer logging.TraceDuration(f.log, "FileUC.Store")()
	defer f.sessions.lock(adminID)()

	st, err := f.states.GetState(ctx, adminID)
	if err != nil {
		return nil, err
	}

	fwdID, err := f.msg.ForwardMessage(ctx, f.cfg.Bot.DatabaseChannel, in.ChatID, in.MessageID)
	if err != nil {
		return nil, fmt.Errorf("forward to database channel: %w", err)
	}
	file, err := model.NewFile(fwdID, adminID, st.PendingName, in.Media, in.Caption)
	if err != nil {
		return nil, err
	}
	file.FileLink = f.Link(file.FileID)
	if err := f.files.Save(ctx, file); err != nil {
		return nil, fmt.Errorf("save file: %w", err)
	}
	metrics.IncFileStored()

	if f.cfg.Bot.LinksChannel != 0 {
		f.publish(ctx, fileRecord(file))
	}

	st.PendingName = ""
	res := &StoreResult{File: file, Link: file.FileLink}
	if st.BatchOpen {
		st.Batch = append(st.Batch, file.FileID)
		res.InBatch = true
	}
	if err := f.states.SetState(ctx, adminID, st); err != nil {
		f.log.Error().Err(err).Msg("failed to save session state")
	}
	f.log.Info().Str("file_id", file.FileID).Int("message_id", fwdID).Msg("stored file")
	return res, nil
}

func (f *fileUC) publish(ctx context.Context, text string) {
	id, err := f.msg.Publish(ctx, f.cfg.Bot.LinksChannel, text)
	if err != nil {
		f.log.Error().Err(err).Msg("failed to store record in links channel")
		return
	}
	f.log.Info().Int("message_id", id).Msg("stored record in links channel")
}

func fileRecord(file *model.File) string {
	return fmt.Sprintf("🔗 File Link\n\nID: %s\nName: %s\nType: %s\nDate: %s\nCaption: %s\nMessage ID: %d\n\nLink: %s\n\n#file_%s",
		file.FileID, file.DisplayName(), file.MediaType, time.Now().Format("2006-01-02 15:04:05"),
		file.Caption, file.MessageID, file.FileLink, file.FileID)
}

func batchRecord(b *model.Batch, link string) string {
	files := strings.Join(b.Files, ", ")
	if len(files) > 100 {
		files = files[:97] + "..."
	}
	return fmt.Sprintf("🔗 Batch Link\n\nID: %s\nFiles: %s\nDate: %s\nTotal Files: %d\nLink: %s\n\n#batch_%s\n#batch_files_%s",
		b.BatchID, files, time.Now().Format("2006-01-02 15:04:05"), b.TotalFiles, link,
		b.BatchID, strings.Join(b.Files, ","))
}

func (f *fileUC) StartBatch(ctx context.Context, adminID int64) error {
	defer f.sessions.lock(adminID)()

	st, err := f.states.GetState(ctx, adminID)
	if err != nil {
		return err
	}
	st.BatchOpen = true
	st.Batch = nil
	f.log.Info().Int64("admin_id", adminID).Msg("started new batch")
	return f.states.SetState(ctx, adminID, st)
}

func (f *fileUC) EndBatch(ctx context.Context, adminID int64) (*model.Batch, string, error) {
	defer logging.TraceDuration(f.log, "FileUC.EndBatch")()
	defer f.sessions.lock(adminID)()

	st, err := f.states.GetState(ctx, adminID)
	if err != nil {
		return nil, "", err
	}
	if !st.BatchOpen || len(st.Batch) == 0 {
		return nil, "", domain.ErrNoActiveBatch
	}
	b, err := model.NewBatch(st.Batch, adminID)
	if err != nil {
		return nil, "", err
	}
	if err := f.batches.Save(ctx, b); err != nil {
		return nil, "", fmt.Errorf("save batch: %w", err)
	}
	metrics.IncBatchStored()
	link := f.Link(b.BatchID)

	if f.cfg.Bot.LinksChannel != 0 {
		f.publish(ctx, batchRecord(b, link))
	}

	st.BatchOpen = false
	st.Batch = nil
	if err := f.states.SetState(ctx, adminID, st); err != nil {
		f.log.Error().Err(err).Msg("failed to save session state")
	}
	return b, link, nil
}

func (f *fileUC) BeginRename(ctx context.Context, adminID int64) error {
	defer f.sessions.lock(adminID)()

	st, err := f.states.GetState(ctx, adminID)
	if err != nil {
		return err
	}
	st.AwaitingRename = true
	return f.states.SetState(ctx, adminID, st)
}

func (f *fileUC) ConsumeRename(ctx context.Context, adminID int64, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "/") {
		return false, nil
	}
	defer f.sessions.lock(adminID)()

	st, err := f.states.GetState(ctx, adminID)
	if err != nil {
		return false, err
	}
	if !st.AwaitingRename {
		return false, nil
	}
	st.AwaitingRename = false
	st.PendingName = applyRenameTemplate(f.cfg.Token.RenameTemplate, text)
	return true, f.states.SetState(ctx, adminID, st)
}

// applyRenameTemplate substitutes {filename} in tpl. An empty template, or one
// without the placeholder, leaves the name unchanged.
func applyRenameTemplate(tpl, name string) string {
	if !strings.Contains(tpl, "{filename}") {
		return name
	}
	return strings.ReplaceAll(tpl, "{filename}", name)
}

func (f *fileUC) Deliver(ctx context.Context, req DeliverRequest) (*DeliveryReport, error) {
	defer logging.TraceDuration(f.log, "FileUC.Deliver")()

	file, err := f.files.GetAndTouch(ctx, req.ID)
	switch {
	case err == nil:
		if _, err := f.copyFile(ctx, req.ChatID, file); err != nil {
			metrics.IncDelivery("file", "failed")
			f.log.Error().Err(err).Str("file_id", req.ID).Msg("error sending file")
			return nil, ErrDeliveryFailed
		}
		metrics.IncDelivery("file", "sent")
		f.recordShare(ctx, req)
		f.log.Info().Str("file_id", req.ID).Int64("user_id", req.UserID).Msg("sent file")
		return &DeliveryReport{Total: 1, Sent: 1}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	batch, err := f.batches.GetAndTouch(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if len(batch.Files) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	rep := f.deliverBatch(ctx, req.ChatID, batch.Files)
	if rep.Sent > 0 {
		f.recordShare(ctx, req)
	}
	return rep, nil
}

// deliverBatch looks files up in chunks of deliveryChunk in parallel, then
// copies them in batch order, pausing between chunks.
func (f *fileUC) deliverBatch(ctx context.Context, chatID int64, ids []string) *DeliveryReport {
	rep := &DeliveryReport{Batch: true, Total: len(ids)}
	for start := 0; start < len(ids); start += deliveryChunk {
		end := min(start+deliveryChunk, len(ids))
		chunk := ids[start:end]
		found := make([]*model.File, len(chunk))

		var g errgroup.Group
		for i, id := range chunk {
			g.Go(func() error {
				file, err := f.files.GetAndTouch(ctx, id)
				if err != nil {
					if !errors.Is(err, domain.ErrNotFound) {
						f.log.Error().Err(err).Str("file_id", id).Msg("error getting batch file")
					}
					return nil
				}
				found[i] = file
				return nil
			})
		}
		_ = g.Wait()

		for i, file := range found {
			if file == nil {
				rep.Missing++
				metrics.IncDelivery("batch", "missing")
				continue
			}
			if _, err := f.copyFile(ctx, chatID, file); err != nil {
				f.log.Error().Err(err).Str("file_id", chunk[i]).Msg("error sending batch file")
				rep.Missing++
				metrics.IncDelivery("batch", "failed")
				continue
			}
			rep.Sent++
			metrics.IncDelivery("batch", "sent")
		}

		if end < len(ids) {
			select {
			case <-ctx.Done():
				rep.Missing += len(ids) - end
				return rep
			case <-time.After(f.pause):
			}
		}
	}
	return rep
}

func (f *fileUC) copyFile(ctx context.Context, chatID int64, file *model.File) (int, error) {
	if file.MessageID <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	return f.msg.CopyMessage(ctx, chatID, f.cfg.Bot.DatabaseChannel, file.MessageID, file.CustomName, true)
}

func (f *fileUC) recordShare(ctx context.Context, req DeliverRequest) {
	if req.InGroup {
		f.groups.RecordActivity(ctx, req.ChatID, model.ActivityFile, req.UserID, "")
	}
}
