package libretro

import (
	"unsafe"
)

// envHandler services one environment command. It returns false when the
// command is not supported with the given payload.
type envHandler func(c *Core, data unsafe.Pointer) bool

// envHandlers maps command codes, without the experimental bit, to their
// handlers. It is filled in init because the handlers reach the callback
// trampolines, which dispatch back through this table.
var envHandlers map[uint32]envHandler

func init() {
	envHandlers = map[uint32]envHandler{
		EnvSetRotation:                envSetRotation,
		EnvGetOverscan:                envGetOverscan,
		EnvGetCanDupe:                 envGetCanDupe,
		EnvSetMessage:                 envSetMessage,
		EnvShutdown:                   envShutdown,
		EnvSetPerformanceLevel:        envSetPerformanceLevel,
		EnvGetSystemDirectory:         envGetSystemDirectory,
		EnvSetPixelFormat:             envSetPixelFormat,
		EnvSetInputDescriptors:        envSetInputDescriptors,
		EnvGetVariable:                envGetVariable,
		EnvSetVariables:               envSetVariables,
		EnvGetVariableUpdate:          envGetVariableUpdate,
		EnvSetSupportNoGame:           envSetSupportNoGame,
		EnvGetLibretroPath:            envGetLibretroPath,
		EnvSetFrameTimeCallback:       envSetFrameTimeCallback,
		EnvGetRumbleInterface:         envGetRumbleInterface,
		EnvGetInputDeviceCapabilities: envGetInputDeviceCapabilities,
		EnvGetLogInterface:            envGetLogInterface,
		EnvGetCoreAssetsDirectory:     envGetCoreAssetsDirectory,
		EnvGetSaveDirectory:           envGetSaveDirectory,
		EnvSetSystemAVInfo:            envSetSystemAVInfo,
		EnvSetSubsystemInfo:           envAcknowledge,
		EnvSetControllerInfo:          envSetControllerInfo,
		EnvSetMemoryMaps:              envAcknowledge,
		EnvSetGeometry:                envSetGeometry,
		EnvGetUsername:                envGetUsername,
		EnvGetLanguage:                envGetLanguage,
		EnvSetSupportAchievements:     envAcknowledge,
		EnvSetSerializationQuirks:     envSetSerializationQuirks,
		EnvGetAudioVideoEnable:        envGetAudioVideoEnable,
		EnvGetInputBitmasks:           envAcknowledge,
		EnvGetCoreOptionsVersion:      envGetCoreOptionsVersion,
		EnvSetCoreOptions:             envSetCoreOptions,
		EnvSetCoreOptionsIntl:         envSetCoreOptionsIntl,
		EnvSetCoreOptionsDisplay:      envSetCoreOptionsDisplay,
		EnvGetMessageInterfaceVersion: envGetMessageInterfaceVersion,
		EnvSetMessageExt:              envSetMessageExt,
		EnvSetMinimumAudioLatency:     envSetMinimumAudioLatency,
		EnvSetVariable:                envSetVariable,

		// Known but unsupported by this host.
		EnvSetKeyboardCallback:           envDecline,
		EnvSetDiskControlInterface:       envDecline,
		EnvSetHWRender:                   envDecline,
		EnvSetAudioCallback:              envDecline,
		EnvGetPerfInterface:              envDecline,
		EnvSetAudioBufferStatusCallback:  envDecline,
		EnvSetContentInfoOverride:        envDecline,
		EnvSetCoreOptionsUpdateDisplayCb: envDecline,
		EnvGetThrottleState:              envDecline,
	}
}

// environment dispatches one environment command from the core. Unknown
// commands are logged and reported as unsupported; they are never fatal.
func (c *Core) environment(cmd uint32, data unsafe.Pointer) bool {
	code := cmd &^ (envExperimental | envPrivate)
	h, ok := envHandlers[code]
	if !ok {
		c.log.Debug().Uint32("cmd", code).Msg("unsupported environment command")
		return false
	}
	handled := h(c, data)
	c.log.Trace().Uint32("cmd", code).Bool("handled", handled).Msg("environment")
	return handled
}

func envAcknowledge(*Core, unsafe.Pointer) bool { return true }

func envDecline(*Core, unsafe.Pointer) bool { return false }

func setBool(data unsafe.Pointer, v bool) bool {
	if data == nil {
		return false
	}
	*(*bool)(data) = v
	return true
}

func setUint32(data unsafe.Pointer, v uint32) bool {
	if data == nil {
		return false
	}
	*(*uint32)(data) = v
	return true
}

// setString stores a host-owned C string into a const char** payload.
func (c *Core) setString(data unsafe.Pointer, s string) bool {
	if data == nil || s == "" {
		return false
	}
	*(**byte)(data) = c.strings.get(s)
	return true
}

func envSetRotation(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	rot := *(*uint32)(data)
	// Frames are never rotated by the host.
	if rot != 0 {
		return false
	}
	c.rotation = rot
	return true
}

func envGetOverscan(_ *Core, data unsafe.Pointer) bool { return setBool(data, false) }

func envGetCanDupe(_ *Core, data unsafe.Pointer) bool { return setBool(data, true) }

func envSetMessage(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	m := (*message)(data)
	msg := goString(m.msg)
	c.log.Info().Uint32("frames", m.frames).Msg(msg)
	if c.opts.Messages != nil {
		c.opts.Messages.ShowMessage(msg, m.frames)
	}
	return true
}

func envSetMessageExt(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	m := (*messageExt)(data)
	msg := goString(m.msg)
	c.log.WithLevel(coreLogLevel(int(m.level))).Uint32("duration_ms", m.duration).Msg(msg)
	if c.opts.Messages != nil {
		// Durations are in milliseconds; convert to frames at 60 Hz.
		c.opts.Messages.ShowMessage(msg, m.duration*60/1000)
	}
	return true
}

func envShutdown(c *Core, _ unsafe.Pointer) bool {
	c.shutdown.Store(true)
	return true
}

func envSetPerformanceLevel(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	c.performanceLevel = *(*uint32)(data)
	return true
}

func envGetSystemDirectory(c *Core, data unsafe.Pointer) bool {
	return c.setString(data, c.opts.SystemDir)
}

func envGetSaveDirectory(c *Core, data unsafe.Pointer) bool {
	return c.setString(data, c.opts.SaveDir)
}

func envGetCoreAssetsDirectory(c *Core, data unsafe.Pointer) bool {
	return c.setString(data, c.opts.CoreAssetsDir)
}

func envGetLibretroPath(c *Core, data unsafe.Pointer) bool {
	return c.setString(data, c.path)
}

func envGetUsername(c *Core, data unsafe.Pointer) bool {
	return c.setString(data, c.opts.Username)
}

func envGetLanguage(c *Core, data unsafe.Pointer) bool {
	return setUint32(data, c.opts.Language)
}

// envSetPixelFormat accepts a format change only before the first frame.
func envSetPixelFormat(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	f := PixelFormat(*(*uint32)(data))
	if f.BytesPerPixel() == 0 {
		c.log.Warn().Uint32("format", uint32(f)).Msg("unknown pixel format")
		return false
	}
	if c.videoStarted && f != c.pixelFormat {
		c.log.Warn().Stringer("format", f).Msg("pixel format change after first frame rejected")
		return false
	}
	c.pixelFormat = f
	c.log.Debug().Stringer("format", f).Msg("pixel format set")
	return true
}

func envSetInputDescriptors(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	c.inputDescriptors = c.inputDescriptors[:0]
	for d := (*inputDescriptor)(data); d.description != nil; d = (*inputDescriptor)(unsafe.Add(unsafe.Pointer(d), unsafe.Sizeof(*d))) {
		c.inputDescriptors = append(c.inputDescriptors, InputDescriptor{
			Port:        uint(d.port),
			Device:      uint(d.device),
			Index:       uint(d.index),
			ID:          uint(d.id),
			Description: goString(d.description),
		})
	}
	return true
}

func envGetVariable(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	v := (*variable)(data)
	value, ok := c.vars.Get(goString(v.key))
	if !ok {
		v.value = nil
		return false
	}
	v.value = c.strings.get(value)
	return true
}

func envSetVariables(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	c.vars.Clear()
	for v := (*variable)(data); v.key != nil; v = (*variable)(unsafe.Add(unsafe.Pointer(v), unsafe.Sizeof(*v))) {
		c.vars.DefineLegacy(goString(v.key), goString(v.value))
	}
	return true
}

func envGetVariableUpdate(c *Core, data unsafe.Pointer) bool {
	return setBool(data, c.vars.TakeUpdate())
}

// envSetVariable lets the core change one of its own options. A nil
// payload is a capability query.
func envSetVariable(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return true
	}
	v := (*variable)(data)
	if v.key == nil || v.value == nil {
		return false
	}
	return c.vars.Set(goString(v.key), goString(v.value))
}

func envSetSupportNoGame(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	c.supportNoGame = *(*bool)(data)
	return true
}

func envSetFrameTimeCallback(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	cb := (*frameTimeCallback)(data)
	fn := bindFrameTimeCallback(cb.callback)
	if fn == nil {
		return false
	}
	c.frameTime = fn
	c.frameTimeRef = cb.reference
	return true
}

func envGetRumbleInterface(c *Core, data unsafe.Pointer) bool {
	if data == nil || c.opts.Rumble == nil {
		return false
	}
	ptr := nativeCallbacks().rumble
	if ptr == 0 {
		return false
	}
	(*rumbleInterface)(data).setRumbleState = ptr
	return true
}

func envGetInputDeviceCapabilities(_ *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	*(*uint64)(data) = 1<<DeviceJoypad | 1<<DeviceAnalog
	return true
}

func envGetLogInterface(_ *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	ptr := nativeCallbacks().log
	if ptr == 0 {
		return false
	}
	(*logCallback)(data).log = ptr
	return true
}

// envSetSystemAVInfo replaces timing and geometry mid-session. Pools are
// reallocated and the audio sink is reconfigured.
func envSetSystemAVInfo(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	c.flushAudio()
	c.av = (*systemAVInfo)(data).toAVInfo()
	if c.gameLoaded {
		c.allocatePools()
		c.notifyAudioFormat()
	}
	c.log.Info().
		Float64("fps", c.av.NativeFrameRate).
		Float64("sample_rate", c.av.SampleRate).
		Msg("system AV info changed")
	return true
}

func envSetGeometry(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	c.av.applyGeometry((*gameGeometry)(data))
	if c.videoPool != nil {
		need := int(c.av.MaxWidth)*int(c.av.MaxHeight)*4 + videoSlotHeadroom
		if need > c.videoPool.SlotSize() {
			// Growing discards slot contents including the last frame.
			c.videoPool.Grow(need)
			c.haveFrame = false
		}
	}
	return true
}

func envSetControllerInfo(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	c.controllerTypes = c.controllerTypes[:0]
	for ci := (*controllerInfo)(data); ci.types != nil; ci = (*controllerInfo)(unsafe.Add(unsafe.Pointer(ci), unsafe.Sizeof(*ci))) {
		descs := unsafe.Slice(ci.types, ci.numTypes)
		port := make([]ControllerType, 0, len(descs))
		for _, d := range descs {
			port = append(port, ControllerType{Description: goString(d.desc), ID: uint(d.id)})
		}
		c.controllerTypes = append(c.controllerTypes, port)
	}
	return true
}

func envSetSerializationQuirks(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	c.serializationQuirk = *(*uint64)(data)
	return true
}

func envGetAudioVideoEnable(_ *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	// Bit 0 enables video, bit 1 enables audio.
	*(*int32)(data) = 3
	return true
}

func envGetCoreOptionsVersion(_ *Core, data unsafe.Pointer) bool {
	return setUint32(data, 1)
}

func envGetMessageInterfaceVersion(_ *Core, data unsafe.Pointer) bool {
	return setUint32(data, 1)
}

func envSetMinimumAudioLatency(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	c.minAudioLatencyMs = *(*uint32)(data)
	c.log.Debug().Uint32("ms", c.minAudioLatencyMs).Msg("core minimum audio latency")
	return true
}

func (c *Core) defineCoreOptions(defs *coreOptionDefinition) {
	c.vars.Clear()
	for d := defs; d.key != nil; d = (*coreOptionDefinition)(unsafe.Add(unsafe.Pointer(d), unsafe.Sizeof(*d))) {
		v := Variable{
			Key:         goString(d.key),
			Description: goString(d.desc),
			Info:        goString(d.info),
			Default:     goString(d.defaultValue),
		}
		for _, opt := range d.values {
			if opt.value == nil {
				break
			}
			v.Choices = append(v.Choices, goString(opt.value))
		}
		c.vars.Define(v)
	}
}

func envSetCoreOptions(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	c.defineCoreOptions((*coreOptionDefinition)(data))
	return true
}

func envSetCoreOptionsIntl(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	intl := (*coreOptionsIntl)(data)
	if intl.us == nil {
		return false
	}
	c.defineCoreOptions(intl.us)
	return true
}

func envSetCoreOptionsDisplay(c *Core, data unsafe.Pointer) bool {
	if data == nil {
		return false
	}
	d := (*coreOptionDisplay)(data)
	if d.key == nil {
		return false
	}
	c.vars.SetVisible(goString(d.key), d.visible)
	return true
}
