package admin

// Admin command opcodes
const (
	OpGetLogPage      uint8 = 0x02
	OpIdentify        uint8 = 0x06
	OpSetFeatures     uint8 = 0x09
	OpGetFeatures     uint8 = 0x0A
	OpNamespaceManage uint8 = 0x0D
	OpNamespaceAttach uint8 = 0x15
	OpFormatNVM       uint8 = 0x80
)

// NVM command set opcodes, issued through the I/O passthrough
const (
	OpIOWrite uint8 = 0x01
	OpIORead  uint8 = 0x02
)

const (
	// NamespaceAll addresses every namespace of the controller
	NamespaceAll uint32 = 0xFFFFFFFF
	// NamespaceController marks a controller scoped command
	NamespaceController uint32 = 0

	FeatureTempThreshold uint32 = 0x04
	LogPageSmartHealth   uint32 = 0x02

	IdentifyDataLen = 4096
	SmartLogDataLen = 512
)

// Kernel request codes, see include/uapi/linux/nvme_ioctl.h.
// The size field of the passthrough codes (0x48) is sizeof(struct nvme_passthru_cmd).
const (
	ioctlAdminCmd uintptr = 0xC0484E41 // _IOWR('N', 0x41, struct nvme_admin_cmd)
	ioctlIOCmd    uintptr = 0xC0484E43 // _IOWR('N', 0x43, struct nvme_passthru_cmd)
	ioctlReset    uintptr = 0x4E44     // _IO('N', 0x44)
	ioctlRescan   uintptr = 0x4E46     // _IO('N', 0x46)
)

// CommandSize is the size of the descriptor handed to the kernel
const CommandSize = 72

// Command mirrors the kernel's struct nvme_passthru_cmd field for field.
// The layout must not be reordered: natural alignment of every field already
// matches the C struct, so no padding is inserted.
type Command struct {
	Opcode      uint8
	Flags       uint8
	Reserved    uint16
	NamespaceID uint32
	Cdw2        uint32
	Cdw3        uint32
	Metadata    uint64
	Addr        uint64
	MetadataLen uint32
	DataLen     uint32
	Cdw10       uint32
	Cdw11       uint32
	Cdw12       uint32
	Cdw13       uint32
	Cdw14       uint32
	Cdw15       uint32
	TimeoutMs   uint32
	Result      uint32
}

// Response is what one exchange hands back to the caller
type Response struct {
	// Data holds exactly DataLen bytes of the response buffer
	Data []byte
	// Result is the completion dword 0 written back by the controller
	Result uint32
}

// Exchanger issues one prepared request and returns the response.
// Implementations own the device handle only for the duration of the call.
type Exchanger interface {
	Exchange(req *Request) (Response, error)
}

// Resetter issues the argument-less controller ioctls
type Resetter interface {
	Reset() error
	Rescan() error
}
