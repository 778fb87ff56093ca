package loaders

import (
	"fmt"

	"github.com/spaghettifunk/chronos/engine/core"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// ParseSPIRV turns raw bytes into the little endian words vkCreateShaderModule
// expects, rejecting anything that is not word aligned or lacks the magic.
func ParseSPIRV(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		err := fmt.Errorf("shader code length %d is not a positive multiple of 4: %w", len(b), core.ErrShaderInvalid)
		core.LogError(err.Error())
		return nil, err
	}
	code := bytesToBytecode(b)
	if code[0] != SPIRVMagic {
		err := fmt.Errorf("bad SPIR-V magic %#08x: %w", code[0], core.ErrShaderInvalid)
		core.LogError(err.Error())
		return nil, err
	}
	return code, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
