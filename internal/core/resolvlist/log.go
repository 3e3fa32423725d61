package resolvlist

import "github.com/dep2p/go-blekeys/pkg/lib/log"

var logger = log.Logger("core/resolvlist")
