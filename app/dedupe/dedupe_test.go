package dedupe_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/hookrelay/app/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRunDeduper(t *testing.T) {
	Convey("Given a new RunDeduper", t, func() {
		d := dedupe.NewRunDeduper()
		now := time.UnixMilli(1_700_000_000_000)
		ttl := 30 * time.Minute

		Convey("When a key is checked for the first time", func() {
			seen := d.CheckAndMark("delivery:abc", ttl, now)

			Convey("Then it is not seen and is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the same key is checked again inside the TTL", func() {
			d.CheckAndMark("delivery:abc", ttl, now)
			seen := d.CheckAndMark("delivery:abc", ttl, now.Add(ttl-time.Millisecond))

			Convey("Then it is reported as seen", func() {
				So(seen, ShouldBeTrue)
			})

			Convey("And the original expiry is not extended", func() {
				again := d.CheckAndMark("delivery:abc", ttl, now.Add(ttl))
				So(again, ShouldBeFalse)
			})
		})

		Convey("When the TTL has elapsed", func() {
			d.CheckAndMark("delivery:abc", ttl, now)
			seen := d.CheckAndMark("delivery:abc", ttl, now.Add(ttl))

			Convey("Then the key is treated as new", func() {
				So(seen, ShouldBeFalse)
			})
		})

		Convey("When unrelated expired entries exist", func() {
			d.CheckAndMark("old-1", time.Second, now)
			d.CheckAndMark("old-2", time.Second, now)
			d.CheckAndMark("fresh", ttl, now.Add(5*time.Second))

			Convey("Then they are purged on the next call", func() {
				So(d.Len(), ShouldEqual, 1)
			})
		})

		Convey("When a key is forgotten", func() {
			d.CheckAndMark("delivery:abc", ttl, now)
			d.Forget("delivery:abc")

			Convey("Then a retry is accepted", func() {
				So(d.CheckAndMark("delivery:abc", ttl, now), ShouldBeFalse)
			})
		})

		Convey("When many goroutines race on the same key", func() {
			var wg sync.WaitGroup
			var winners atomic.Int64

			for i := 0; i < 64; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.CheckAndMark("delivery:race", ttl, now) {
						winners.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one caller wins", func() {
				So(winners.Load(), ShouldEqual, 1)
			})
		})

		Convey("When distinct keys are recorded", func() {
			for i := 0; i < 10; i++ {
				So(d.CheckAndMark(fmt.Sprintf("k-%d", i), ttl, now), ShouldBeFalse)
			}

			Convey("Then each is tracked independently", func() {
				So(d.Len(), ShouldEqual, 10)
			})
		})
	})
}
