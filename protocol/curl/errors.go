package curl

import (
	E "github.com/sagernet/sing-slist/common/exceptions"
)

var (
	ErrOutOfMemory         = E.New("out of memory")
	ErrForeignAppendFailed = E.New("foreign list append failed")
	ErrUseAfterRelease     = E.New("header list used after release")
)
