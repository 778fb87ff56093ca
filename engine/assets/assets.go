package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/chronos/engine/assets/loaders"
	"github.com/spaghettifunk/chronos/engine/core"
)

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
	ResourceTypeModel
)

type AssetInfo struct {
	Path       string
	Type       ResourceType
	LastLoaded time.Time
}

// AssetManager indexes the asset tree, loads files through the loader
// registered for their type and, when watching, reports changed files to
// the frame loop as EVENT_CODE_ASSET_CHANGED.
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[ResourceType]Loader

	mutex sync.RWMutex

	events   *core.EventQueue
	watcher  *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

func NewAssetManager(events *core.EventQueue) *AssetManager {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[ResourceType]Loader),
		events:  events,
		done:    make(chan struct{}),
	}

	// Register loaders
	am.registerLoader(ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(ResourceTypeModel, &loaders.ModelLoader{})
	return am
}

// Initialize indexes every known asset under assetsDir. With watch set, a
// goroutine follows the tree with fsnotify until Shutdown.
func (am *AssetManager) Initialize(assetsDir string, watch bool) error {
	if watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			core.LogError("failed to create asset watcher: %s", err)
			return err
		}
		am.watcher = w
		am.wg.Add(1)
		go am.start()
	}

	if err := am.addRecursive(assetsDir); err != nil {
		core.LogError("failed to index assets in %s: %s", assetsDir, err)
		return err
	}
	core.LogDebug("indexed %d assets under %s", am.Len(), assetsDir)
	return nil
}

// Shutdown stops the watcher goroutine, if any. Safe to call more than once.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	return nil
}

// addRecursive indexes the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.closed() {
		return errors.New("asset manager already closed")
	}
	return am.watchRecursive(name)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads path with the loader matching its extension.
func (am *AssetManager) LoadAsset(path string) (*loaders.Resource, error) {
	assetType := determineAssetType(path)
	if assetType == ResourceTypeNone {
		err := fmt.Errorf("unknown asset type for %s", path)
		core.LogError(err.Error())
		return nil, err
	}

	loader, loaderExists := am.loaders[assetType]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %d", assetType)
	}

	res, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()
	return res, nil
}

// LoadShader returns the SPIR-V words of a compiled shader.
func (am *AssetManager) LoadShader(path string) ([]uint32, error) {
	if determineAssetType(path) != ResourceTypeShader {
		return nil, fmt.Errorf("%s is not a compiled shader: %w", path, core.ErrShaderInvalid)
	}
	res, err := am.LoadAsset(path)
	if err != nil {
		return nil, err
	}
	return res.Data.([]uint32), nil
}

func (am *AssetManager) UnloadAsset(asset *loaders.Resource) error {
	loader, ok := am.loaders[determineAssetType(asset.FullPath)]
	if !ok {
		return nil
	}
	return loader.Unload(asset)
}

func (am *AssetManager) Asset(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[path]
	return info, ok
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

func (am *AssetManager) closed() bool {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.isClosed
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.watcher.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case err, ok := <-am.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.watcher.Close()
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err)
			}
		}
		return
	}

	switch {
	case e.Has(fsnotify.Create) || e.Has(fsnotify.Write):
		if am.handleFileEvent(e.Name) {
			core.LogDebug("asset changed: %s", e.Name)
			am.events.Push(core.EventContext{
				Type: core.EVENT_CODE_ASSET_CHANGED,
				Path: e.Name,
			})
		}
	case e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename):
		am.removeAsset(e.Name)
	}
}

// watchRecursive indexes every file under path and, when watching, adds each
// directory to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if am.watcher != nil {
				return am.watcher.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent indexes a created or modified file. It reports whether the
// file is a known asset.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == ResourceTypeNone {
		return false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[path]
	info.Path = path
	info.Type = assetType
	am.assets[path] = info
	return true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) ResourceType {
	switch {
	case filepath.Ext(path) == ".spv":
		return ResourceTypeShader
	case strings.HasSuffix(path, ".model.toml"):
		return ResourceTypeModel
	default:
		return ResourceTypeNone
	}
}
