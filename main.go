package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"time"

	tm "github.com/buger/goterm"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"
	"go.uber.org/zap"

	"mediashift/internal/capture"
	"mediashift/internal/exif"
	"mediashift/internal/exiftool"
	"mediashift/internal/logging"
	"mediashift/internal/organize"
	"mediashift/internal/rename"
	"mediashift/internal/timeshift"
)

const appName = "mediashift"

var (
	regexImage = regexp.MustCompile(`(?i)\.(jpg|jpeg|gif|png|webp|tiff|bmp|raw|heic|dng)$`)
	regexVideo = regexp.MustCompile(`(?i)\.(mpg|wmv|avi|mov|m4v|3gp|mp4|flv|webm|ogv|ts)$`)
)

func main() {
	app := &cli.App{
		Name:                   appName,
		Usage:                  "Organize photo and video files by their capture time and location",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only print errors.",
			},
			&cli.StringFlag{
				Name:  "run-log",
				Usage: "Append a JSON record of every action to this file.",
			},
		},
		Before: func(c *cli.Context) error {
			return logging.Init(c.String("run-log"), c.Bool("quiet"))
		},
		Commands: []*cli.Command{
			renameCommand(),
			moveCommand(),
			shiftCommand(),
			syncCommand(),
			setTimeCommand(),
			setTimezoneCommand(),
			toUTCCommand(),
			stripGPSCommand(),
			checkCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		tracerr.Print(tracerr.Wrap(err))
		os.Exit(1)
	}
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Rename files to <timestamp+offset>-<place>-<device>.<ext>",
		ArgsUsage: "path...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"d"}, Usage: "Only print what would happen."},
			&cli.BoolFlag{Name: "backup", Aliases: []string{"b"}, Usage: "Keep a .backup copy of every renamed file."},
			&cli.BoolFlag{Name: "suffixless", Usage: "Build the plan without extensions, for sidecar reuse."},
			&cli.BoolFlag{Name: "no-place", Usage: "Skip reverse geocoding; omit the place segment."},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Rename worker count (0 = one per CPU)."},
		},
		Action: func(c *cli.Context) error {
			paths, err := collectMedia(c.Args().Slice())
			if err != nil {
				return err
			}

			var geo rename.Geocoder
			if !c.Bool("no-place") {
				g, err := rename.NewCityGeocoder()
				if err != nil {
					return err
				}
				geo = g
			}

			tool, err := exiftool.New()
			if err != nil {
				return err
			}
			defer tool.Close()

			plan, err := rename.NewBuilder(tool, geo).Build(paths, rename.Options{
				Suffixless: c.Bool("suffixless"),
			})
			if err != nil {
				return err
			}
			if len(plan) < len(paths) {
				logging.Log.Warn("files without capture datetime were excluded",
					zap.Int("excluded", len(paths)-len(plan)))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			stats, err := organize.Execute(ctx, plan, organize.ExecuteOptions{
				Backup:   c.Bool("backup"),
				DryRun:   c.Bool("dry-run"),
				Workers:  c.Int("workers"),
				Progress: progress(c.Bool("quiet")),
			})
			printStats(stats)
			if errors.Is(err, context.Canceled) {
				logging.Log.Warn("interrupted; completed renames were kept")
				return nil
			}
			return err
		},
	}
}

func moveCommand() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "File renamed media into <out>/YYYY/MM/ date buckets",
		ArgsUsage: "out path...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "backup", Aliases: []string{"b"}, Usage: "Copy instead of move, keeping originals."},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return errors.New("output directory and at least one path are required")
			}
			outDir := c.Args().First()
			paths, err := collectMedia(c.Args().Tail())
			if err != nil {
				return err
			}

			stats, err := organize.Dispatch(paths, outDir, c.Bool("backup"))
			printStats(stats)
			return err
		},
	}
}

func shiftCommand() *cli.Command {
	return &cli.Command{
		Name:      "shift",
		Usage:     "Shift every timestamp field by a duration (e.g. -1h30m, 72h)",
		ArgsUsage: "path...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "by", Required: true, Usage: "Signed duration to shift by."},
			scopeFlag(),
			backupFlag(),
		},
		Action: func(c *cli.Context) error {
			delta, err := time.ParseDuration(c.String("by"))
			if err != nil {
				return err
			}
			fields, err := scopeFields(c.String("scope"))
			if err != nil {
				return err
			}
			return withEngine(c, func(engine *timeshift.Engine, paths []string) error {
				return engine.Shift(paths, delta, timeshift.Options{
					Fields: fields,
					Backup: c.Bool("backup"),
				})
			})
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Shift files so the reference file's capture time lands on the target time",
		ArgsUsage: "path...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reference", Aliases: []string{"r"}, Required: true, Usage: "File whose true time is known (e.g. a photographed clock)."},
			&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Required: true, Usage: "True time: \"15:04:05\", \"15:04\" or \"2006-01-02 15:04:05\"."},
			backupFlag(),
		},
		Action: func(c *cli.Context) error {
			target, err := parseTarget(c.String("target"))
			if err != nil {
				return err
			}
			return withEngine(c, func(engine *timeshift.Engine, paths []string) error {
				return engine.ShiftToTarget(paths, c.String("reference"), target, timeshift.Options{
					Backup: c.Bool("backup"),
				})
			})
		},
	}
}

func setTimeCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-time",
		Usage:     "Write one literal instant into every timestamp field (destroys offsets; re-apply set-timezone after)",
		ArgsUsage: "path...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Required: true, Usage: "Datetime, \"2006-01-02 15:04:05\"."},
			backupFlag(),
		},
		Action: func(c *cli.Context) error {
			t, err := parseDatetime(c.String("to"))
			if err != nil {
				return err
			}
			return withEngine(c, func(engine *timeshift.Engine, paths []string) error {
				return engine.SetAbsolute(paths, t, timeshift.Options{Backup: c.Bool("backup")})
			})
		},
	}
}

func setTimezoneCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-timezone",
		Usage:     "Declare a UTC offset on every field without shifting wall-clock values",
		ArgsUsage: "path...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "offset", Required: true, Usage: "Signed offset, e.g. +02:00."},
			&cli.BoolFlag{Name: "quicktime-utc", Usage: "Also switch the backend's own UTC handling for video fields."},
			backupFlag(),
		},
		Action: func(c *cli.Context) error {
			off, err := capture.ParseOffset(c.String("offset"))
			if err != nil {
				return err
			}
			return withEngine(c, func(engine *timeshift.Engine, paths []string) error {
				return engine.SetTimezone(paths, off, timeshift.SetTimezoneOptions{
					Options:      timeshift.Options{Backup: c.Bool("backup")},
					QuickTimeUTC: c.Bool("quicktime-utc"),
				})
			})
		},
	}
}

func toUTCCommand() *cli.Command {
	return &cli.Command{
		Name:      "to-utc",
		Usage:     "Re-express video timestamp fields in UTC using each file's resolved timezone",
		ArgsUsage: "path...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "coerce", Usage: "Fall back to the host timezone when a file's timezone cannot be resolved."},
			backupFlag(),
		},
		Action: func(c *cli.Context) error {
			return withEngine(c, func(engine *timeshift.Engine, paths []string) error {
				for _, path := range paths {
					if err := engine.VideoToUTC(path, c.Bool("coerce"), timeshift.Options{
						Backup: c.Bool("backup"),
					}); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func stripGPSCommand() *cli.Command {
	return &cli.Command{
		Name:      "strip-gps",
		Usage:     "Clear all GPS fields (aborts if any file carries embedded telemetry)",
		ArgsUsage: "path...",
		Flags:     []cli.Flag{backupFlag()},
		Action: func(c *cli.Context) error {
			return withEngine(c, func(engine *timeshift.Engine, paths []string) error {
				return engine.RemoveGPS(paths, timeshift.Options{Backup: c.Bool("backup")})
			})
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Report resolved capture time, timezone and cross-field consistency",
		ArgsUsage: "path...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "naive", Usage: "Compare fields with timezones stripped."},
			&cli.BoolFlag{Name: "no-gps", Usage: "Resolve timezones without GPS."},
		},
		Action: func(c *cli.Context) error {
			paths, err := collectMedia(c.Args().Slice())
			if err != nil {
				return err
			}

			tool, err := exiftool.New()
			if err != nil {
				return err
			}
			defer tool.Close()

			snaps, err := tool.Extract(paths...)
			if err != nil {
				return err
			}

			useGPS := !c.Bool("no-gps")
			for i, snap := range snaps {
				line := paths[i] + ": "

				if res, ok := capture.Datetime(snap, capture.DatetimeOptions{
					ForceTimezone: true,
					UseGPS:        useGPS,
				}); ok {
					line += res.Time.Format("2006-01-02 15:04:05")
				} else {
					line += "no capture datetime"
				}

				off, ok, err := capture.ResolveTimezone(snap, useGPS)
				switch {
				case err != nil:
					var unknown *capture.UnknownTimezoneError
					if !errors.As(err, &unknown) {
						return err
					}
					line += ", timezone unknown for GPS position"
				case ok:
					line += ", UTC" + off.String()
				default:
					line += ", timezone undetermined"
				}

				if capture.Consistent(snap, !c.Bool("naive")) {
					line += ", consistent"
				} else {
					line += ", INCONSISTENT"
				}

				fmt.Println(line)
			}

			return nil
		},
	}
}

// withEngine expands path arguments, opens one backend handle for the
// whole batch and runs fn against the engine.
func withEngine(c *cli.Context, fn func(engine *timeshift.Engine, paths []string) error) error {
	paths, err := collectMedia(c.Args().Slice())
	if err != nil {
		return err
	}

	tool, err := exiftool.New()
	if err != nil {
		return err
	}
	defer tool.Close()

	return fn(timeshift.New(tool), paths)
}

// collectMedia expands files and directories into a flat media file list.
// Single paths and directory trees come out the same way, so every command
// body only ever deals with a sequence.
func collectMedia(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one file or directory argument is required")
	}

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if regexImage.MatchString(path) || regexVideo.MatchString(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(paths) == 0 {
		return nil, errors.New("no media files found")
	}
	return paths, nil
}

func backupFlag() cli.Flag {
	return &cli.BoolFlag{Name: "backup", Aliases: []string{"b"}, Usage: "Keep a .backup copy of every modified file."}
}

func scopeFlag() cli.Flag {
	return &cli.StringFlag{Name: "scope", Value: "all", Usage: "Fields to touch: all, photo or video."}
}

func scopeFields(scope string) ([]exif.TimestampField, error) {
	switch scope {
	case "", "all":
		return nil, nil
	case "photo":
		return exif.PhotoFields, nil
	case "video":
		return exif.VideoFields, nil
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
}

func progress(quiet bool) func(done, total int, path string) {
	if quiet {
		return nil
	}
	return func(done, total int, path string) {
		tm.Printf("\033[2K\r[%s] %d/%d %s", appName, done, total, path)
		tm.Flush()
	}
}

func printStats(stats organize.Stats) {
	tm.Println()
	tm.Println(tm.Color(tm.Bold(fmt.Sprintf("[%s] %d done / %d skipped", appName, stats.Done, stats.Skipped)), tm.YELLOW))
	tm.Flush()
}

// parseDatetime accepts "2006-01-02 15:04:05" and its T-separated form.
func parseDatetime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse datetime %q", s)
}

// parseTarget accepts a bare clock time or a full datetime.
func parseTarget(s string) (timeshift.Target, error) {
	if t, err := parseDatetime(s); err == nil {
		return timeshift.Target{Time: t, HasDate: true}, nil
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return timeshift.Target{Time: t}, nil
		}
	}
	return timeshift.Target{}, fmt.Errorf("cannot parse target time %q", s)
}
