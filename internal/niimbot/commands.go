package niimbot

import "fmt"

// Command is a request code understood by the printer.
type Command uint8

// Request codes.
const (
	CmdStartPrint          Command = 0x01
	CmdStartPagePrint      Command = 0x03
	CmdSetPageSize         Command = 0x13
	CmdAllowPrintClear     Command = 0x20
	CmdSetLabelDensity     Command = 0x21
	CmdSetLabelType        Command = 0x23
	CmdSetAutoShutdownTime Command = 0x27
	CmdGetInfo             Command = 0x40
	CmdPrintBitmapRow      Command = 0x85
	CmdGetPrintStatus      Command = 0xA3
	CmdHeartbeat           Command = 0xDC
	CmdEndPagePrint        Command = 0xE3
	CmdEndPrint            Command = 0xF3
)

// noResponse marks commands the device does not acknowledge.
const noResponse = -1

// responseOffsets maps each request to the distance between its code and
// the code of the matching response. The values are protocol constants;
// they are never guessed per call.
var responseOffsets = map[Command]int{
	CmdGetInfo:             0,
	CmdHeartbeat:           1,
	CmdSetLabelType:        16,
	CmdSetLabelDensity:     16,
	CmdStartPrint:          1,
	CmdStartPagePrint:      1,
	CmdSetPageSize:         noResponse,
	CmdEndPagePrint:        1,
	CmdEndPrint:            1,
	CmdGetPrintStatus:      16,
	CmdPrintBitmapRow:      noResponse,
	CmdAllowPrintClear:     16,
	CmdSetAutoShutdownTime: 16,
}

// ResponseOffset returns the fixed response offset of c and whether the
// device answers it at all.
func (c Command) ResponseOffset() (uint8, bool) {
	off, ok := responseOffsets[c]
	if !ok || off == noResponse {
		return 0, false
	}
	return uint8(off), true
}

func (c Command) String() string {
	switch c {
	case CmdStartPrint:
		return "start_print"
	case CmdStartPagePrint:
		return "start_page_print"
	case CmdSetPageSize:
		return "set_page_size"
	case CmdAllowPrintClear:
		return "allow_print_clear"
	case CmdSetLabelDensity:
		return "set_label_density"
	case CmdSetLabelType:
		return "set_label_type"
	case CmdSetAutoShutdownTime:
		return "set_auto_shutdown_time"
	case CmdGetInfo:
		return "get_info"
	case CmdPrintBitmapRow:
		return "print_bitmap_row"
	case CmdGetPrintStatus:
		return "get_print_status"
	case CmdHeartbeat:
		return "heartbeat"
	case CmdEndPagePrint:
		return "end_page_print"
	case CmdEndPrint:
		return "end_print"
	default:
		return fmt.Sprintf("command(0x%02x)", uint8(c))
	}
}

// InfoKey selects the value returned by GetInfo.
type InfoKey uint8

// Info keys.
const (
	InfoDensity          InfoKey = 1
	InfoPrintSpeed       InfoKey = 2
	InfoLabelType        InfoKey = 3
	InfoLanguageType     InfoKey = 6
	InfoAutoShutdownTime InfoKey = 7
	InfoDeviceType       InfoKey = 8
	InfoSoftVersion      InfoKey = 9
	InfoBattery          InfoKey = 10
	InfoDeviceSerial     InfoKey = 11
	InfoHardVersion      InfoKey = 12
)

var infoKeyNames = map[string]InfoKey{
	"density":            InfoDensity,
	"print_speed":        InfoPrintSpeed,
	"label_type":         InfoLabelType,
	"language_type":      InfoLanguageType,
	"auto_shutdown_time": InfoAutoShutdownTime,
	"device_type":        InfoDeviceType,
	"soft_version":       InfoSoftVersion,
	"battery":            InfoBattery,
	"device_serial":      InfoDeviceSerial,
	"hard_version":       InfoHardVersion,
}

// ParseInfoKey resolves a snake_case info name such as "battery".
func ParseInfoKey(name string) (InfoKey, error) {
	k, ok := infoKeyNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown info key %q", name)
	}
	return k, nil
}
