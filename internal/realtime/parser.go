package realtime

import (
	"github.com/zishang520/socket.io-go-parser/v2/parser"
)

// orderedParser is the stock socket.io parser with a hook on decoded event
// packets. The manager re-emits decoded packets on fresh goroutines, so
// events are taken from the decoder itself, which runs on the transport's
// read goroutine in arrival order.
type orderedParser struct {
	parser.Parser
	onEvent func(args []any)
}

func (p *orderedParser) NewDecoder() parser.Decoder {
	d := p.Parser.NewDecoder()
	d.On("decoded", func(packets ...any) {
		for _, v := range packets {
			pkt, ok := v.(*parser.Packet)
			if !ok || !isDefaultNamespace(pkt.Nsp) {
				continue
			}
			if pkt.Type != parser.EVENT && pkt.Type != parser.BINARY_EVENT {
				continue
			}
			args, ok := pkt.Data.([]any)
			if !ok {
				continue
			}
			p.onEvent(args)
		}
	})
	return d
}

func isDefaultNamespace(nsp string) bool {
	return nsp == "" || nsp == "/"
}
