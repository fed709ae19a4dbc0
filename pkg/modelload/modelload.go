package modelload

// Package modelload acquires the resources that the fatigue pipeline
// needs before it can process frames: the face landmarker model asset
// and the engine calibration. Assets are fetched from an ordered list
// of mirror base URLs, falling back to the next mirror on any failure
// (network, HTTP error, or an asset the landmarker rejects).
//
// Landmarker implementations are registered at runtime (typically from
// an init function), so this package stays free of any concrete model
// runtime dependency.

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/driftguard/driftguard/pkg/facemesh"
	"github.com/driftguard/driftguard/pkg/fatigue"
)

// Constructs a landmarker from a model file on disk.
type LandmarkerFactory func(logger logs.Log, modelFile string) (facemesh.Landmarker, error)

var (
	factoriesLock sync.Mutex
	factories     = map[string]LandmarkerFactory{}
)

// RegisterLandmarker makes a landmarker implementation available under
// the given name. Call this from the implementation's init function.
func RegisterLandmarker(name string, factory LandmarkerFactory) {
	factoriesLock.Lock()
	defer factoriesLock.Unlock()
	factories[name] = factory
}

// RegisteredLandmarkers returns the names of all registered
// implementations, sorted.
func RegisteredLandmarkers() []string {
	factoriesLock.Lock()
	defer factoriesLock.Unlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupFactory(name string) (LandmarkerFactory, bool) {
	factoriesLock.Lock()
	defer factoriesLock.Unlock()
	f, ok := factories[name]
	return f, ok
}

func downloadFile(srcUrl, targetFile string) error {
	tempFile := targetFile + ".tmp"
	if err := os.MkdirAll(filepath.Dir(targetFile), 0755); err != nil {
		return err
	}
	resp, err := http.DefaultClient.Get(srcUrl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("HTTP error %v", resp.Status)
	}
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(file, resp.Body)
	if err != nil {
		return err
	}
	file.Close()
	return os.Rename(tempFile, targetFile)
}

// Fetch relPath from the first mirror that serves it, into
// assetDir/relPath. Returns immediately if the file is already on disk.
func fetchAsset(logger logs.Log, mirrors []string, assetDir, relPath string) (string, error) {
	diskPath := filepath.Join(assetDir, relPath)
	if _, err := os.Stat(diskPath); err == nil {
		return diskPath, nil
	}
	if len(mirrors) == 0 {
		return "", fmt.Errorf("no mirrors configured for asset %v", relPath)
	}
	var lastErr error
	for _, base := range mirrors {
		srcUrl := base + "/" + relPath
		logger.Infof("Downloading %v to %v", srcUrl, diskPath)
		if err := downloadFile(srcUrl, diskPath); err != nil {
			logger.Warnf("Download of %v failed: %v", srcUrl, err)
			lastErr = err
			continue
		}
		return diskPath, nil
	}
	return "", fmt.Errorf("all mirrors failed for %v: %w", relPath, lastErr)
}

// LoadLandmarker downloads the model asset for the named landmarker and
// constructs it. If a mirror serves an asset that the implementation
// rejects, that asset is discarded and the next mirror is tried.
func LoadLandmarker(logger logs.Log, mirrors []string, assetDir, name string) (facemesh.Landmarker, error) {
	factory, ok := lookupFactory(name)
	if !ok {
		return nil, fmt.Errorf("no landmarker registered with name '%v' (have %v)", name, RegisteredLandmarkers())
	}
	relPath := name + ".task"
	diskPath := filepath.Join(assetDir, relPath)

	// If we already have the asset on disk, try it first
	if _, err := os.Stat(diskPath); err == nil {
		lm, err := factory(logger, diskPath)
		if err == nil {
			return lm, nil
		}
		logger.Warnf("Cached model %v is unusable (%v), re-downloading", diskPath, err)
		os.Remove(diskPath)
	}

	if len(mirrors) == 0 {
		return nil, fmt.Errorf("no mirrors configured for landmarker '%v'", name)
	}
	var lastErr error
	for _, base := range mirrors {
		srcUrl := base + "/" + relPath
		logger.Infof("Downloading %v to %v", srcUrl, diskPath)
		if err := downloadFile(srcUrl, diskPath); err != nil {
			logger.Warnf("Download of %v failed: %v", srcUrl, err)
			lastErr = err
			continue
		}
		lm, err := factory(logger, diskPath)
		if err != nil {
			logger.Warnf("Model from %v rejected: %v", srcUrl, err)
			os.Remove(diskPath)
			lastErr = err
			continue
		}
		return lm, nil
	}
	return nil, fmt.Errorf("failed to load landmarker '%v' from any mirror: %w", name, lastErr)
}

// CalibrationAsset is the filename of the engine calibration, relative
// to every mirror root.
const CalibrationAsset = "fatigue-calibration.json"

// LoadCalibration fetches the engine calibration through the mirror
// list and parses it.
func LoadCalibration(logger logs.Log, mirrors []string, assetDir string) (*fatigue.Calibration, error) {
	diskPath, err := fetchAsset(logger, mirrors, assetDir, CalibrationAsset)
	if err != nil {
		return nil, err
	}
	cal, err := fatigue.LoadCalibration(diskPath)
	if err != nil {
		return nil, fmt.Errorf("invalid calibration %v: %w", diskPath, err)
	}
	return cal, nil
}
