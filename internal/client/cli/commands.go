package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/client/services"
	"github.com/dmitrijs2005/gophdiary/internal/common"
)

// getSimpleText, getSecret and getMultiline are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
	getMultiline  = GetMultiline
)

const (
	feedTimeout   = 10 * time.Second
	tokenValidity = 24 * time.Hour
)

var errNoDiary = errors.New("no diary open, use new or open <id>")

func (a *App) commands() map[string]command {
	return map[string]command{
		"login":     {usage: "login [token]", run: a.Login},
		"token":     {usage: "token <user id>", run: a.Token},
		"logout":    {usage: "logout", needsAuth: true, run: a.Logout},
		"list":      {usage: "list", needsAuth: true, run: a.List},
		"filter":    {usage: "filter <date|clear>", needsAuth: true, run: a.Filter},
		"new":       {usage: "new", needsAuth: true, run: a.New},
		"open":      {usage: "open <id>", needsAuth: true, run: a.Open},
		"title":     {usage: "title <text>", needsAuth: true, run: a.Title},
		"desc":      {usage: "desc [text]", needsAuth: true, run: a.Desc},
		"mood":      {usage: "mood <name>", needsAuth: true, run: a.Mood},
		"date":      {usage: "date <when>", needsAuth: true, run: a.Date},
		"time":      {usage: "time <HH:MM>", needsAuth: true, run: a.Time},
		"resetdate": {usage: "resetdate", needsAuth: true, run: a.ResetDate},
		"attach":    {usage: "attach <path...>", needsAuth: true, run: a.Attach},
		"detach":    {usage: "detach <n>", needsAuth: true, run: a.Detach},
		"show":      {usage: "show", needsAuth: true, run: a.Show},
		"save":      {usage: "save", needsAuth: true, run: a.Save},
		"delete":    {usage: "delete", needsAuth: true, run: a.Delete},
		"deleteall": {usage: "deleteall", needsAuth: true, run: a.DeleteAll},
		"sync":      {usage: "sync", needsAuth: true, run: a.Sync},
		"pending":   {usage: "pending", run: a.Pending},
	}
}

func (a *App) requireSession() (*services.EditSession, error) {
	if a.session == nil {
		return nil, errNoDiary
	}
	return a.session, nil
}

// Login authenticates with the token given as argument or typed without echo.
func (a *App) Login(ctx context.Context, args []string) error {
	var token []byte
	if len(args) > 0 {
		token = []byte(args[0])
	} else {
		var err error
		if token, err = getSecret("Enter token", a.out); err != nil {
			return err
		}
	}
	defer common.WipeByteArray(token)

	userID, err := a.auth.Login(ctx, string(token))
	if err != nil {
		return err
	}
	a.session = nil
	a.home.Refresh()
	fmt.Fprintf(a.out, "Logged in as %s\n", userID)
	return nil
}

// Token prints a token for userID signed with the configured secret.
func (a *App) Token(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: token <user id>")
	}
	token, err := a.auth.IssueToken(args[0], tokenValidity)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	return nil
}

func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.home.SignOut(ctx); err != nil {
		return err
	}
	a.session = nil
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// List reloads the feed and prints it once loaded.
func (a *App) List(ctx context.Context, _ []string) error {
	a.home.Refresh()
	ch, cancel := a.home.Subscribe()
	defer cancel()

	timeout := time.After(feedTimeout)
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return errors.New("feed closed")
			}
			switch st.Status {
			case services.HomeLoading:
				continue
			case services.HomeError:
				return errors.New(st.Message)
			}
			a.printGroups(st.Groups)
			return nil
		case <-timeout:
			return errors.New("timed out loading diaries")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *App) printGroups(groups []services.DayGroup) {
	if f := a.home.Filter(); f != nil {
		fmt.Fprintf(a.out, "Filter: %s\n", f)
	}
	if len(groups) == 0 {
		fmt.Fprintln(a.out, "No diaries")
		return
	}
	for _, g := range groups {
		fmt.Fprintln(a.out, g.Date.String())
		for _, d := range g.Diaries {
			fmt.Fprintf(a.out, "  %s  %s  [%s] %s (%d images)\n",
				d.ID, d.Date.In(a.loc).Format("15:04"), d.Mood, d.Title, len(d.Images))
		}
	}
}

func (a *App) Filter(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: filter <date|clear>")
	}
	if args[0] == "clear" {
		a.home.SetDateFilter(nil)
		return a.List(ctx, nil)
	}
	day, err := parseDate(strings.Join(args, " "), time.Now().In(a.loc))
	if err != nil {
		return err
	}
	a.home.SetDateFilter(&day)
	return a.List(ctx, nil)
}

func (a *App) New(_ context.Context, _ []string) error {
	a.session = a.newEditSession()
	fmt.Fprintln(a.out, "New diary, use save when done")
	return nil
}

func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: open <id>")
	}
	s := a.newEditSession()
	if err := s.OnForeground(ctx, args[0]); err != nil {
		return err
	}
	a.session = s
	return a.Show(ctx, nil)
}

func (a *App) Title(_ context.Context, args []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	s.OnTitleChanged(strings.Join(args, " "))
	return nil
}

// Desc sets the description from the arguments or, without any, from lines
// read until an empty one.
func (a *App) Desc(_ context.Context, args []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	text := strings.Join(args, " ")
	if len(args) == 0 {
		if text, err = getMultiline(a.reader, "Enter description", a.out); err != nil {
			return err
		}
	}
	s.OnDescriptionChanged(text)
	return nil
}

func (a *App) Mood(_ context.Context, args []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	mood, ok := models.ParseMood(strings.Join(args, " "))
	if !ok {
		names := make([]string, len(models.Moods))
		for i, m := range models.Moods {
			names[i] = m.String()
		}
		return fmt.Errorf("unknown mood, one of: %s", strings.Join(names, ", "))
	}
	s.OnMoodChanged(mood)
	return nil
}

func (a *App) Date(_ context.Context, args []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	day, err := parseDate(strings.Join(args, " "), time.Now().In(a.loc))
	if err != nil {
		return err
	}
	s.OnDateChanged(day)
	return nil
}

func (a *App) Time(_ context.Context, args []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: time <HH:MM>")
	}
	t, err := parseClock(args[0])
	if err != nil {
		return err
	}
	s.OnTimeChanged(t)
	return nil
}

func (a *App) ResetDate(_ context.Context, _ []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	s.ResetDate()
	return nil
}

// Attach adds local image files to the draft. They are uploaded on save.
func (a *App) Attach(_ context.Context, args []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return errors.New("usage: attach <path...>")
	}
	refs := make([]string, 0, len(args))
	for _, p := range args {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("cannot attach %s: %w", p, err)
		}
		refs = append(refs, abs)
	}
	return s.OnImagesSelected(refs)
}

// Detach removes the n-th image as numbered by show.
func (a *App) Detach(_ context.Context, args []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return errors.New("usage: detach <n>")
	}
	n, err := strconv.Atoi(args[0])
	imgs := s.Gallery().Images()
	if err != nil || n < 1 || n > len(imgs) {
		return fmt.Errorf("no image %q", args[0])
	}
	s.OnRemoveImage(imgs[n-1])
	return nil
}

func (a *App) Show(_ context.Context, _ []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	d := s.Draft()
	id := d.ID
	if id == "" {
		id = "(new)"
	}
	fmt.Fprintf(a.out, "ID: %s\n", id)
	fmt.Fprintf(a.out, "State: %s\n", s.State())
	fmt.Fprintf(a.out, "Date: %s\n", d.Date.In(a.loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(a.out, "Mood: %s\n", d.Mood)
	fmt.Fprintf(a.out, "Title: %s\n", d.Title)
	fmt.Fprintf(a.out, "Description: %s\n", d.Description)
	for i, img := range s.Gallery().Images() {
		status := "uploaded"
		if img.RemotePath == "" {
			status = "pending"
		}
		fmt.Fprintf(a.out, "  %d. %s [%s]\n", i+1, img.Key(), status)
	}
	return nil
}

func (a *App) Save(ctx context.Context, _ []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	ev := s.OnSaveClick(ctx)
	if ev.Kind == services.SaveFailure {
		return fmt.Errorf("save failed: %s", ev.Message)
	}
	fmt.Fprintf(a.out, "Saved %s\n", s.Draft().ID)
	return nil
}

func (a *App) Delete(ctx context.Context, _ []string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	ev := s.OnDelete(ctx)
	if ev.Kind == services.DeleteFailure {
		return fmt.Errorf("delete failed: %s", ev.Message)
	}
	a.session = nil
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

// DeleteAll removes every diary and image of the user after confirmation.
func (a *App) DeleteAll(ctx context.Context, _ []string) error {
	answer, err := getSimpleText(a.reader, "Delete ALL diaries and images? Type yes to confirm", a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	if err := a.home.DeleteAllDiaries(ctx); err != nil {
		return err
	}
	a.session = nil
	fmt.Fprintln(a.out, "All diaries deleted")
	return nil
}

// Sync replays the pending image queues now.
func (a *App) Sync(ctx context.Context, _ []string) error {
	if err := a.images.Reconcile(ctx); err != nil {
		return err
	}
	return a.Pending(ctx, nil)
}

func (a *App) Pending(ctx context.Context, _ []string) error {
	ups, dels, err := a.images.Pending(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Pending uploads: %d, pending deletes: %d\n", len(ups), len(dels))
	for _, u := range ups {
		fmt.Fprintf(a.out, "  upload %s -> diary %s\n", u.RemotePath, u.DiaryID)
	}
	for _, d := range dels {
		fmt.Fprintf(a.out, "  delete %s\n", d.RemotePath)
	}
	return nil
}
