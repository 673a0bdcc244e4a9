package r503

import "fmt"

// PID identifies the packet type.
type PID byte

const (
	PIDCommand PID = 0x01
	PIDData    PID = 0x02
	PIDAck     PID = 0x07
	PIDEndData PID = 0x08
)

func (p PID) String() string {
	switch p {
	case PIDCommand:
		return "COMMAND"
	case PIDData:
		return "DATA"
	case PIDAck:
		return "ACK"
	case PIDEndData:
		return "END_DATA"
	default:
		return fmt.Sprintf("PID(0x%02x)", byte(p))
	}
}

// Command is an instruction code.
type Command byte

const (
	CommandGetImage      Command = 0x01
	CommandImage2Tz      Command = 0x02
	CommandSearch        Command = 0x04
	CommandRegModel      Command = 0x05
	CommandStore         Command = 0x06
	CommandLoad          Command = 0x07
	CommandUpChar        Command = 0x08
	CommandDownChar      Command = 0x09
	CommandUpImage       Command = 0x0a
	CommandDownImage     Command = 0x0b
	CommandDelete        Command = 0x0c
	CommandEmpty         Command = 0x0d
	CommandReadSysParams Command = 0x0f
	CommandVerifyPwd     Command = 0x13
	CommandTemplateCount Command = 0x1d
	CommandReadIndex     Command = 0x1f
	CommandAuraLED       Command = 0x35
	CommandSoftReset     Command = 0x3d
)

var commandNames = map[Command]string{
	CommandGetImage:      "GenImg",
	CommandImage2Tz:      "Img2Tz",
	CommandSearch:        "Search",
	CommandRegModel:      "RegModel",
	CommandStore:         "Store",
	CommandLoad:          "LoadChar",
	CommandUpChar:        "UpChar",
	CommandDownChar:      "DownChar",
	CommandUpImage:       "UpImage",
	CommandDownImage:     "DownImage",
	CommandDelete:        "DeletChar",
	CommandEmpty:         "Empty",
	CommandReadSysParams: "ReadSysPara",
	CommandVerifyPwd:     "VfyPwd",
	CommandTemplateCount: "TempleteNum",
	CommandReadIndex:     "ReadIndexTable",
	CommandAuraLED:       "AuraLedConfig",
	CommandSoftReset:     "SoftRst",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02x)", byte(c))
}

// Code is the confirmation code carried by an acknowledge packet.
type Code byte

const (
	CodeOK                Code = 0x00
	CodePacketRecvErr     Code = 0x01
	CodeNoFinger          Code = 0x02
	CodeImageFail         Code = 0x03
	CodeImageMess         Code = 0x06
	CodeFeatureFail       Code = 0x07
	CodeNoMatch           Code = 0x08
	CodeNotFound          Code = 0x09
	CodeEnrollMismatch    Code = 0x0a
	CodeBadLocation       Code = 0x0b
	CodeDBReadFail        Code = 0x0c
	CodeUploadFeatureFail Code = 0x0d
	CodePacketResponseErr Code = 0x0e
	CodeUploadFail        Code = 0x0f
	CodeDeleteFail        Code = 0x10
	CodeDBClearFail       Code = 0x11
	CodePassFail          Code = 0x13
	CodeInvalidImage      Code = 0x15
	CodeFlashErr          Code = 0x18
	CodeInvalidReg        Code = 0x1a
	CodeAddrCode          Code = 0x20
	CodePassVerify        Code = 0x21
)

var codeNames = map[Code]string{
	CodeOK:                "OK",
	CodePacketRecvErr:     "packet receive error",
	CodeNoFinger:          "no finger",
	CodeImageFail:         "imaging failure",
	CodeImageMess:         "image too messy",
	CodeFeatureFail:       "too few feature points",
	CodeNoMatch:           "no match",
	CodeNotFound:          "not found",
	CodeEnrollMismatch:    "characteristics mismatch",
	CodeBadLocation:       "page ID beyond library",
	CodeDBReadFail:        "template read failure",
	CodeUploadFeatureFail: "template upload failure",
	CodePacketResponseErr: "cannot receive data packages",
	CodeUploadFail:        "image upload failure",
	CodeDeleteFail:        "delete failure",
	CodeDBClearFail:       "clear library failure",
	CodePassFail:          "wrong password",
	CodeInvalidImage:      "no valid primary image",
	CodeFlashErr:          "flash write failure",
	CodeInvalidReg:        "invalid register",
	CodeAddrCode:          "wrong address",
	CodePassVerify:        "password verification required",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(0x%02x)", byte(c))
}

// TransferKind selects which sensor buffer carries templates to and from
// the host.
type TransferKind int

const (
	// TransferCharacter moves the feature buffers, so an enrolled template is
	// the combined model built by RegModel.
	TransferCharacter TransferKind = iota
	// TransferImage moves the raw image buffer. The host copy is converted
	// into features by the sensor after download. Only useful for templates
	// sealed by deployments that stored images.
	TransferImage
)

func (k TransferKind) String() string {
	switch k {
	case TransferImage:
		return "image"
	case TransferCharacter:
		return "char"
	default:
		return fmt.Sprintf("TransferKind(%d)", int(k))
	}
}

// ParseTransferKind accepts "char" or "image".
func ParseTransferKind(s string) (TransferKind, error) {
	switch s {
	case "char", "character", "":
		return TransferCharacter, nil
	case "image":
		return TransferImage, nil
	default:
		return 0, fmt.Errorf("r503: unknown transfer kind %q", s)
	}
}

const (
	startCode       uint16 = 0xef01
	headerSize             = 9
	checksumSize           = 2
	indexPageSlots         = 256
	defaultPassword uint32 = 0x00000000
)

// BroadcastAddress is the factory default module address.
var BroadcastAddress = Address{0xff, 0xff, 0xff, 0xff}

// packetSizes maps the system parameter code to the data packet length.
var packetSizes = [...]int{32, 64, 128, 256}
