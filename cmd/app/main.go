// Command app is the terminal client for the EnglishStudent platform:
// session management, catalog browsing, the paired learn player and
// the content management operations.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/englishstudent/client/internal/api"
	"github.com/englishstudent/client/internal/auth"
	"github.com/englishstudent/client/internal/config"
	"github.com/englishstudent/client/internal/logger"
	"github.com/englishstudent/client/internal/models"
	"github.com/englishstudent/client/internal/pairing"
	"github.com/englishstudent/client/internal/player"
	"github.com/englishstudent/client/internal/progress"
	"github.com/englishstudent/client/internal/storage"
)

const usage = `Usage: app <command> [flags]

Session:
  login         -u <username> -p <password>
  register      -u <username> -e <email> -p <password> [-first NAME] [-last NAME]
  logout
  me

Learning:
  courses
  course        -id <courseID>
  learn         -course <courseID> [-level <levelID>]
  download      -id <materialID> [-o <path>]
  dashboard

Management (teacher/admin):
  create-course -title <title> [-desc TEXT] [-level beginner|intermediate|advanced]
  delete-course -id <courseID>
  create-level  -course <courseID> -title <title> [-desc TEXT] [-number N]
  delete-level  -id <levelID>
  materials
  upload        -course <courseID> -file <path> [-title TEXT] [-level <levelID>]
  assign        -id <materialID> [-course <courseID>]
  scan
`

// app bundles the wired client pieces each command works with.
type app struct {
	client   *api.Client
	tokens   *auth.TokenStore
	progress *progress.Store
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// The terminal client keeps the log quiet unless asked otherwise.
	level := cfg.Logging.Level
	if os.Getenv("LOG_LEVEL") == "" {
		level = "error"
	}
	if err := logger.Init(level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	store, err := openStore(cfg)
	if err != nil {
		fatal(fmt.Errorf("failed to open local store: %w", err))
	}

	tokens := auth.NewTokenStore(store)
	a := &app{
		client:   api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, cfg.API.FileTimeout, tokens, logger.Logger),
		tokens:   tokens,
		progress: progress.NewStore(store),
	}

	ctx := context.Background()
	command, args := os.Args[1], os.Args[2:]

	switch command {
	case "login":
		err = a.login(ctx, args)
	case "register":
		err = a.register(ctx, args)
	case "logout":
		err = a.logout()
	case "me":
		err = a.me(ctx)
	case "courses":
		err = a.listCourses(ctx)
	case "course":
		err = a.showCourse(ctx, args)
	case "learn":
		err = a.learn(ctx, args)
	case "download":
		err = a.download(ctx, args)
	case "dashboard":
		err = a.dashboard(ctx)
	case "create-course":
		err = a.createCourse(ctx, args)
	case "delete-course":
		err = a.deleteCourse(ctx, args)
	case "create-level":
		err = a.createLevel(ctx, args)
	case "delete-level":
		err = a.deleteLevel(ctx, args)
	case "materials":
		err = a.listMaterials(ctx)
	case "upload":
		err = a.upload(ctx, args)
	case "assign":
		err = a.assign(ctx, args)
	case "scan":
		err = a.scan(ctx)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

// fatal prints the friendly message for an error and exits.
func fatal(err error) {
	if errors.Is(err, api.ErrSessionExpired) {
		fmt.Fprintln(os.Stderr, "Error: your session has expired, please log in again")
	} else {
		fmt.Fprintln(os.Stderr, "Error:", api.UserMessage(err))
	}
	os.Exit(1)
}

// openStore opens the persistent key-value store, encrypted when a
// store key is configured.
func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.StoreKey != "" {
		return storage.NewEncryptedFileStore(cfg.StorePath(), cfg.StoreKey)
	}
	return storage.NewFileStore(cfg.StorePath())
}

// ===== Session commands =====

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	fs.Parse(args)
	if *username == "" || *password == "" {
		return errors.New("-u and -p are required")
	}

	user, err := a.client.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s)\n", user.Username, user.UserType)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	password := fs.String("p", "", "password")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	fs.Parse(args)
	if *username == "" || *email == "" || *password == "" {
		return errors.New("-u, -e and -p are required")
	}

	user, err := a.client.Register(ctx, api.RegisterRequest{
		Username:  *username,
		Email:     *email,
		Password:  *password,
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Registered and logged in as %s\n", user.Username)
	return nil
}

func (a *app) logout() error {
	if err := a.client.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func (a *app) me(ctx context.Context) error {
	user, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", user.Username, user.Email)
	if user.FirstName != "" || user.LastName != "" {
		fmt.Printf("  name: %s %s\n", user.FirstName, user.LastName)
	}
	fmt.Printf("  role: %s\n", user.UserType)
	return nil
}

// ===== Learning commands =====

func (a *app) listCourses(ctx context.Context) error {
	courses, err := a.client.ListCourses(ctx)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		fmt.Println("No courses available")
		return nil
	}
	for _, c := range courses {
		total := c.TotalMaterials()
		fmt.Printf("%4d  %-40s %3d%%  (%d materials)\n",
			c.ID, c.Title, a.progress.Percent(c.ID, total), total)
	}
	return nil
}

func (a *app) showCourse(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("course", flag.ExitOnError)
	id := fs.Int("id", 0, "course ID")
	fs.Parse(args)
	if *id <= 0 {
		return errors.New("-id is required")
	}

	course, err := a.client.GetCourse(ctx, *id)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", course.Title, course.Level)
	if course.Description != "" {
		fmt.Println(course.Description)
	}
	if len(course.Levels) > 0 {
		for _, l := range course.Levels {
			fmt.Printf("  level %d [%d]: %s (%d materials)\n",
				l.LevelNumber, l.ID, l.Title, len(l.Materials))
		}
	} else {
		for _, m := range course.Materials {
			printMaterial(m)
		}
	}
	total := course.TotalMaterials()
	fmt.Printf("Progress: %d%% of %d materials\n", a.progress.Percent(course.ID, total), total)
	return nil
}

func printMaterial(m models.Material) {
	size := models.FormatFileSize(m.FileSize)
	if size != "" {
		size = "  " + size
	}
	fmt.Printf("  [%d] %-6s %s%s\n", m.ID, m.MaterialType, m.Title, size)
}

func (a *app) dashboard(ctx context.Context) error {
	courses, err := a.client.ListCourses(ctx)
	if err != nil {
		return err
	}

	var totalMaterials, totalCompleted int
	for _, c := range courses {
		total := c.TotalMaterials()
		completed := len(a.progress.Completed(c.ID))
		if completed > total {
			completed = total
		}
		totalMaterials += total
		totalCompleted += completed
		fmt.Printf("%-40s %3d/%3d  %3d%%\n", c.Title, completed, total, a.progress.Percent(c.ID, total))
	}
	if totalMaterials > 0 {
		fmt.Printf("\nOverall: %d/%d (%d%%)\n",
			totalCompleted, totalMaterials, totalCompleted*100/totalMaterials)
	}
	return nil
}

func (a *app) download(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	id := fs.Int("id", 0, "material ID")
	out := fs.String("o", "", "output path (defaults to material_<id>)")
	fs.Parse(args)
	if *id <= 0 {
		return errors.New("-id is required")
	}

	data, contentType, err := a.client.DownloadMaterial(ctx, *id, "")
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("material_%d%s", *id, extensionForContentType(contentType))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	fmt.Printf("Saved %s (%s)\n", path, models.FormatFileSize(int64(len(data))))
	return nil
}

func extensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "pdf"):
		return ".pdf"
	case strings.Contains(contentType, "mpeg"):
		return ".mp3"
	case strings.Contains(contentType, "wav"):
		return ".wav"
	default:
		return ""
	}
}

// ===== Learn player =====

// learn runs the interactive paired player for one course level. The
// session drives the transport clock in real time; finishing a track
// records the completion mark.
func (a *app) learn(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("learn", flag.ExitOnError)
	courseID := fs.Int("course", 0, "course ID")
	levelID := fs.Int("level", 0, "level ID (defaults to the first level)")
	fs.Parse(args)
	if *courseID <= 0 {
		return errors.New("-course is required")
	}

	course, err := a.client.GetCourse(ctx, *courseID)
	if err != nil {
		return err
	}

	pairs := pairing.BuildPairs(pairing.MaterialsFor(course, *levelID))
	if len(pairs) == 0 {
		fmt.Println("No materials to study in this level")
		return nil
	}

	cache, err := player.NewRefCache()
	if err != nil {
		return fmt.Errorf("failed to create content cache: %w", err)
	}
	defer cache.Close()

	ctrl := player.NewController(a.client, a.progress, cache, logger.Logger)
	defer ctrl.Close()
	ctrl.SetPairs(course.ID, pairs)

	// Real-time transport clock.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctrl.Advance(250 * time.Millisecond)
			}
		}
	}()

	fmt.Printf("Studying %q — %d pairs. Type help for commands.\n", course.Title, len(pairs))
	printStatus(ctrl, a.progress, course.ID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			fmt.Println("Commands: list, sel N, next, prev, play, pause, seek SECONDS, vol 0-100, retry, status, quit")
		case "list":
			for i, pair := range ctrl.Pairs() {
				marker := "  "
				if i == ctrl.Index() {
					marker = "* "
				}
				mark := " "
				if pair.Audio != nil && a.progress.IsCompleted(course.ID, pair.Audio.ID) {
					mark = "x"
				}
				fmt.Printf("%s[%s] %2d. %s\n", marker, mark, i+1, pair.Title)
			}
		case "sel":
			if len(fields) < 2 {
				fmt.Println("sel needs a pair number")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 || n > len(ctrl.Pairs()) {
				fmt.Println("no such pair")
				continue
			}
			ctrl.Select(n - 1)
			printStatus(ctrl, a.progress, course.ID)
		case "next":
			ctrl.Next()
			printStatus(ctrl, a.progress, course.ID)
		case "prev":
			ctrl.Previous()
			printStatus(ctrl, a.progress, course.ID)
		case "play":
			ctrl.Play()
		case "pause":
			ctrl.Pause()
		case "seek":
			if len(fields) < 2 {
				fmt.Println("seek needs a position in seconds")
				continue
			}
			secs, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("seek needs a position in seconds")
				continue
			}
			ctrl.Seek(time.Duration(secs) * time.Second)
		case "vol":
			if len(fields) < 2 {
				fmt.Println("vol needs a value 0-100")
				continue
			}
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("vol needs a value 0-100")
				continue
			}
			ctrl.SetVolume(v)
		case "retry":
			ctrl.RetryDocument()
		case "status":
			ctrl.Wait()
			printStatus(ctrl, a.progress, course.ID)
		case "quit", "exit":
			return nil
		default:
			fmt.Println("Unknown command; type help")
		}
	}
}

// printStatus renders the current pair's two sides and the transport.
func printStatus(ctrl *player.Controller, prog *progress.Store, courseID int) {
	pair := ctrl.Current()
	if pair == nil {
		fmt.Println("Nothing selected")
		return
	}

	fmt.Printf("Pair %d/%d: %s\n", ctrl.Index()+1, len(ctrl.Pairs()), pair.Title)
	printSide("document", ctrl.Document())
	printSide("audio   ", ctrl.Audio())

	if pair.Audio != nil {
		mark := ""
		if prog.IsCompleted(courseID, pair.Audio.ID) {
			mark = "  [completed]"
		}
		fmt.Printf("  transport: %s %s / %s  vol %d%%%s\n",
			ctrl.State(),
			formatClock(ctrl.Position()), formatClock(ctrl.Duration()),
			ctrl.Volume(), mark)
	}
}

func printSide(label string, v player.SideView) {
	switch v.Status {
	case player.SideReady:
		if v.Path != "" {
			fmt.Printf("  %s: ready (%s)\n", label, filepath.Base(v.Path))
		} else {
			fmt.Printf("  %s: ready (remote %s)\n", label, v.URL)
		}
	case player.SideLoading:
		fmt.Printf("  %s: loading...\n", label)
	case player.SideError:
		fmt.Printf("  %s: error: %s (retry available)\n", label, v.Error)
	default:
		fmt.Printf("  %s: -\n", label)
	}
}

func formatClock(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// ===== Management commands =====

func (a *app) createCourse(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-course", flag.ExitOnError)
	title := fs.String("title", "", "course title")
	desc := fs.String("desc", "", "course description")
	level := fs.String("level", "beginner", "course complexity")
	fs.Parse(args)
	if *title == "" {
		return errors.New("-title is required")
	}
	if err := a.requireManager(); err != nil {
		return err
	}

	course, err := a.client.CreateCourse(ctx, *title, *desc, *level)
	if err != nil {
		return err
	}
	fmt.Printf("Created course %d: %s\n", course.ID, course.Title)
	return nil
}

func (a *app) deleteCourse(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-course", flag.ExitOnError)
	id := fs.Int("id", 0, "course ID")
	fs.Parse(args)
	if *id <= 0 {
		return errors.New("-id is required")
	}
	if err := a.requireManager(); err != nil {
		return err
	}

	if err := a.client.DeleteCourse(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("Deleted course %d\n", *id)
	return nil
}

func (a *app) createLevel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-level", flag.ExitOnError)
	courseID := fs.Int("course", 0, "course ID")
	title := fs.String("title", "", "level title")
	desc := fs.String("desc", "", "level description")
	number := fs.Int("number", 0, "level number (auto when omitted)")
	fs.Parse(args)
	if *courseID <= 0 || *title == "" {
		return errors.New("-course and -title are required")
	}
	if err := a.requireManager(); err != nil {
		return err
	}

	level, err := a.client.CreateLevel(ctx, *courseID, *title, *desc, *number)
	if err != nil {
		return err
	}
	fmt.Printf("Created level %d (number %d) in course %d\n", level.ID, level.LevelNumber, *courseID)
	return nil
}

func (a *app) deleteLevel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-level", flag.ExitOnError)
	id := fs.Int("id", 0, "level ID")
	fs.Parse(args)
	if *id <= 0 {
		return errors.New("-id is required")
	}
	if err := a.requireManager(); err != nil {
		return err
	}

	if err := a.client.DeleteLevel(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("Deleted level %d\n", *id)
	return nil
}

func (a *app) listMaterials(ctx context.Context) error {
	if err := a.requireManager(); err != nil {
		return err
	}

	materials, err := a.client.ListMaterials(ctx)
	if err != nil {
		return err
	}
	for _, m := range materials {
		course := "unassigned"
		if m.Course != nil {
			course = strconv.Itoa(*m.Course)
		}
		fmt.Printf("[%d] %-6s course=%-10s %s\n", m.ID, m.MaterialType, course, m.Title)
	}
	return nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	courseID := fs.Int("course", 0, "course ID")
	path := fs.String("file", "", "file to upload")
	title := fs.String("title", "", "material title (defaults to the file name)")
	levelID := fs.Int("level", 0, "level ID")
	fs.Parse(args)
	if *courseID <= 0 || *path == "" {
		return errors.New("-course and -file are required")
	}
	if err := a.requireManager(); err != nil {
		return err
	}

	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	req := api.UploadRequest{
		FileName: filepath.Base(*path),
		Content:  f,
		Title:    *title,
		Course:   *courseID,
	}
	if *levelID > 0 {
		req.Level = levelID
	}

	if err := a.client.UploadMaterial(ctx, req); err != nil {
		return err
	}
	fmt.Printf("Uploaded %s to course %d\n", req.FileName, *courseID)
	return nil
}

func (a *app) assign(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	id := fs.Int("id", 0, "material ID")
	courseID := fs.Int("course", 0, "course ID (omit to detach)")
	fs.Parse(args)
	if *id <= 0 {
		return errors.New("-id is required")
	}
	if err := a.requireManager(); err != nil {
		return err
	}

	var course *int
	if *courseID > 0 {
		course = courseID
	}
	if err := a.client.AssignMaterialCourse(ctx, *id, course); err != nil {
		return err
	}
	if course != nil {
		fmt.Printf("Assigned material %d to course %d\n", *id, *course)
	} else {
		fmt.Printf("Detached material %d\n", *id)
	}
	return nil
}

func (a *app) scan(ctx context.Context) error {
	if err := a.requireManager(); err != nil {
		return err
	}

	message, err := a.client.ScanMaterials(ctx)
	if err != nil {
		return err
	}
	fmt.Println(message)
	return nil
}

// requireManager rejects management commands early when the stored
// user lacks the role. The backend enforces the same rule anyway.
func (a *app) requireManager() error {
	user, err := a.tokens.User()
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if user == nil {
		return errors.New("log in first")
	}
	if !user.CanManageCourses() {
		return errors.New("course management requires a teacher or admin account")
	}
	return nil
}
