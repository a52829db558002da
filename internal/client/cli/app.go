package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/client/client"
	"github.com/dmitrijs2005/gophdiary/internal/client/config"
	"github.com/dmitrijs2005/gophdiary/internal/client/services"
	"github.com/dmitrijs2005/gophdiary/internal/filex"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/remote/blobstore"
	"github.com/dmitrijs2005/gophdiary/internal/remote/docstore"
	"github.com/dmitrijs2005/gophdiary/internal/tasks"

	_ "modernc.org/sqlite"
)

// App owns every long-lived component of the client.
type App struct {
	config *config.Config
	log    logging.Logger
	loc    *time.Location

	db      *sql.DB
	docs    docstore.Store
	blobs   blobstore.Store
	tasks   *tasks.Group
	auth    services.AuthService
	diaries services.DiaryRepository
	images  services.ImageSync
	home    *services.Home

	// the diary being edited, nil when none is open
	session *services.EditSession

	reader *bufio.Reader
	out    io.Writer
}

func openBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	if c.UseS3() {
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		})
	}
	return blobstore.NewLocalStore(c.BlobDir)
}

// NewApp opens the local database and both remote stores and builds the
// services on top of them.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	if c.DBPath != ":memory:" {
		if _, err := filex.EnsureDir(filepath.Dir(c.DBPath)); err != nil {
			return nil, err
		}
	}

	db, err := client.InitDatabase(ctx, c.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	docs, err := docstore.Open(ctx, c.DocStoreDSN, c.WatchInterval, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error opening document store: %w", err)
	}

	blobs, err := openBlobStore(ctx, c)
	if err != nil {
		_ = docs.Close()
		_ = db.Close()
		return nil, fmt.Errorf("error opening blob store: %w", err)
	}

	repos := client.NewRepositories(db)
	group := tasks.NewGroup(context.Background(), log)
	as := services.NewAuthService(db, []byte(c.JWTSecret))
	ds := services.NewDiaryRepository(docs, as, loc)
	is := services.NewImageSync(repos.Uploads, repos.Deletes, blobs, ds, group, log)

	return &App{
		config:  c,
		log:     log,
		loc:     loc,
		db:      db,
		docs:    docs,
		blobs:   blobs,
		tasks:   group,
		auth:    as,
		diaries: ds,
		images:  is,
		home:    services.NewHome(ds, is, as, c.ShareGrace, log),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

// Start restores the stored session and replays pending image work in the
// background.
func (a *App) Start(ctx context.Context) {
	userID, err := a.auth.Restore(ctx)
	switch {
	case err != nil:
		a.log.Warn(ctx, "stored session dropped", "error", err)
	case userID != "":
		a.log.Info(ctx, "session restored", "user_id", userID)
	}

	a.tasks.Go(func(ctx context.Context) {
		if err := a.images.Reconcile(ctx); err != nil {
			a.log.Error(ctx, "image reconciliation failed", "error", err)
		}
	})
}

// Run starts the app and blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to GophDiary CLI (type 'help' for commands)")
	a.Start(ctx)
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// Close waits for background uploads and releases every store.
func (a *App) Close() {
	a.home.Close()
	a.tasks.Close()
	err := errors.Join(a.docs.Close(), a.db.Close())
	if err != nil {
		a.log.Error(context.Background(), "error closing app", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	_, ok := a.auth.CurrentUser()
	return ok
}

func (a *App) getStatus() string {
	s := ""
	if userID, ok := a.auth.CurrentUser(); ok {
		s = userID
	}
	if a.session != nil {
		if s != "" {
			s += " "
		}
		s += "editing"
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) newEditSession() *services.EditSession {
	return services.NewEditSession(a.diaries, a.images, a.blobs, a.auth, a.tasks, a.log, a.loc)
}
