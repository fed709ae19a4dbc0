package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/akamensky/argparse"
	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/driftguard/driftguard/pkg/modelload"
	"github.com/driftguard/driftguard/server/pipeline"
	"github.com/driftguard/driftguard/server/www"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	nominalDefaultAssets := "$HOME/driftguard/assets"

	parser := argparse.NewParser("driftguard", "Real-time driver fatigue signal pipeline")
	assetDir := parser.String("a", "assets", &argparse.Options{Help: "Directory where model assets are cached", Default: nominalDefaultAssets})
	mirrors := parser.String("m", "mirrors", &argparse.Options{Help: "Comma-separated list of asset mirror base URLs", Default: "https://assets.driftguard.org"})
	landmarker := parser.String("l", "landmarker", &argparse.Options{Help: "Name of the landmarker implementation to load", Default: "facemesh"})
	port := parser.String("p", "port", &argparse.Options{Help: "HTTP listen port", Default: ":8081"})
	feedDir := parser.String("f", "feed", &argparse.Options{Help: "Feed the images in this directory through the pipeline, in filename order", Default: ""})
	fps := parser.Int("", "fps", &argparse.Options{Help: "Frame rate for --feed", Default: 10})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	if names := modelload.RegisteredLandmarkers(); len(names) == 0 {
		logger.Errorf("No landmarker implementations are linked into this binary")
		os.Exit(1)
	} else {
		logger.Infof("Available landmarkers: %v", strings.Join(names, ", "))
	}

	pipe := pipeline.NewPipeline(logger, pipeline.Options{
		Mirrors:    strings.Split(*mirrors, ","),
		AssetDir:   strings.ReplaceAll(*assetDir, "$HOME", os.Getenv("HOME")),
		Landmarker: *landmarker,
	})
	pipe.Init()

	ready := make(chan bool)
	go func() {
		sawReady := false
		for ev := range pipe.Events() {
			switch ev.Type {
			case pipeline.EventReady:
				sawReady = true
				close(ready)
			case pipeline.EventError:
				if !sawReady {
					logger.Errorf("Pipeline failed to initialize: %v", ev.Err)
					os.Exit(1)
				}
				logger.Errorf("Pipeline error: %v", ev.Err)
			case pipeline.EventResult:
				logger.Infof("Fatigue %.2f (%v)", ev.Result.Score, ev.Result.Level)
			}
		}
	}()

	if *feedDir != "" {
		go func() {
			<-ready
			feedImages(logger, pipe, *feedDir, *fps)
		}()
	}

	check(www.NewServer(logger, pipe).ListenAndServe(*port))
}

// Feed the images in dir through the pipeline on repeat, simulating a
// camera. Frames that arrive while the pipeline is busy are dropped by
// the admission gate, same as live capture.
func feedImages(logger logs.Log, pipe *pipeline.Pipeline, dir string, fps int) {
	entries, err := os.ReadDir(dir)
	check(err)
	files := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		logger.Warnf("No images found in %v", dir)
		return
	}
	logger.Infof("Feeding %v images at %v fps", len(files), fps)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for i := 0; ; i = (i + 1) % len(files) {
		<-ticker.C
		img, err := cimg.ReadFile(files[i])
		if err != nil {
			logger.Warnf("Failed to read %v: %v", files[i], err)
			continue
		}
		pipe.Process(pipeline.NewFrame(img, time.Now(), nil))
	}
}
