//go:build !(darwin || freebsd || linux || netbsd)

package libretro

import "errors"

var errUnsupportedPlatform = errors.New("dynamic core loading is not supported on this platform")

func openPlugin(path string) (Plugin, error) {
	return nil, &PluginLoadError{Path: path, Err: errUnsupportedPlatform}
}

func nativeCallbacks() *callbackPointers { return &callbackPointers{} }

func bindFrameTimeCallback(uintptr) func(int64) { return nil }
