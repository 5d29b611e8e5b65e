package libretro

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"unsafe"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("mod", "libretro").Logger()

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("mod", "libretro").Logger()
}

func coreLogLevel(level int) zerolog.Level {
	switch level {
	case LogDebug:
		return zerolog.DebugLevel
	case LogInfo:
		return zerolog.InfoLevel
	case LogWarn:
		return zerolog.WarnLevel
	case LogError:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// coreLog forwards a core log message. Arguments are register words; on
// platforms where variadic arguments are not passed in registers the
// format string is logged as-is.
func (c *Core) coreLog(level int, format string, args []uintptr) {
	msg := format
	if varargsInRegisters {
		msg = formatCoreMessage(format, args)
	}
	msg = strings.TrimRight(msg, "\r\n")
	if msg == "" {
		return
	}
	c.log.WithLevel(coreLogLevel(level)).Str("core", c.sys.LibraryName).Msg(msg)
}

// Apple arm64 passes every variadic argument on the stack.
var varargsInRegisters = !(runtime.GOOS == "darwin" && runtime.GOARCH == "arm64")

// formatCoreMessage is a small printf that understands the integer,
// character, string and pointer verbs cores use in log calls. Float verbs
// and arguments beyond len(args) are printed literally.
func formatCoreMessage(format string, args []uintptr) string {
	var b strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			b.WriteByte(ch)
			continue
		}
		start := i
		i++
		if i >= len(format) {
			b.WriteByte('%')
			break
		}
		if format[i] == '%' {
			b.WriteByte('%')
			continue
		}

		// Flags, width and precision are skipped.
		for i < len(format) && strings.IndexByte("-+ #0123456789.", format[i]) >= 0 {
			i++
		}
		long := 0
		for i < len(format) && strings.IndexByte("hlzjt", format[i]) >= 0 {
			if format[i] == 'l' || format[i] == 'z' || format[i] == 'j' || format[i] == 't' {
				long++
			}
			i++
		}
		if i >= len(format) {
			b.WriteString(format[start:])
			break
		}
		verb := format[i]
		if strings.IndexByte("diuxXcsp", verb) < 0 || next >= len(args) {
			b.WriteString(format[start : i+1])
			continue
		}
		arg := args[next]
		next++

		switch verb {
		case 'd', 'i':
			if long > 0 {
				b.WriteString(strconv.FormatInt(int64(arg), 10))
			} else {
				b.WriteString(strconv.FormatInt(int64(int32(arg)), 10))
			}
		case 'u':
			if long > 0 {
				b.WriteString(strconv.FormatUint(uint64(arg), 10))
			} else {
				b.WriteString(strconv.FormatUint(uint64(uint32(arg)), 10))
			}
		case 'x', 'X':
			v := uint64(arg)
			if long == 0 {
				v = uint64(uint32(arg))
			}
			s := strconv.FormatUint(v, 16)
			if verb == 'X' {
				s = strings.ToUpper(s)
			}
			b.WriteString(s)
		case 'c':
			b.WriteByte(byte(arg))
		case 's':
			if arg == 0 {
				b.WriteString("(null)")
			} else {
				b.WriteString(goString((*byte)(unsafe.Pointer(arg))))
			}
		case 'p':
			b.WriteString("0x")
			b.WriteString(strconv.FormatUint(uint64(arg), 16))
		}
	}
	return b.String()
}
