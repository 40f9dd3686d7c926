package entity

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/entorm/rdb"
)

func TestCollection(t *testing.T) {
	Convey("Collection", t, func() {
		source := newSource()
		newUser := func(id int, name string) *Entity {
			e, err := Load(source, "user")
			So(err, ShouldBeNil)
			So(e.Set("id", id), ShouldBeNil)
			So(e.Set("name", name), ShouldBeNil)
			return e
		}

		c := NewCollection()
		alice, bob, carol := newUser(1, "Alice"), newUser(2, "Bob"), newUser(3, "Carol")
		So(c.Add(alice), ShouldBeNil)
		So(c.Add(bob), ShouldBeNil)
		So(c.Add(carol), ShouldBeNil)

		Convey("按主键与位置查找", func() {
			So(c.Count(), ShouldEqual, 3)
			for _, e := range []*Entity{alice, bob, carol} {
				found, err := c.GetByID(e.IDValue()...)
				So(err, ShouldBeNil)
				So(found, ShouldPointTo, e)

				found, err = c.GetByID(e.IDValue())
				So(err, ShouldBeNil)
				So(found, ShouldPointTo, e)
			}
			found, err := c.GetByIndex(1)
			So(err, ShouldBeNil)
			So(found, ShouldEqual, bob)

			_, err = c.GetByID(4)
			So(errors.Is(err, rdb.ErrNotFound), ShouldBeTrue)
			_, err = c.GetByIndex(3)
			So(errors.Is(err, rdb.ErrIndex), ShouldBeTrue)
			_, err = c.GetByIndex(-1)
			So(errors.Is(err, rdb.ErrIndex), ShouldBeTrue)
		})

		Convey("重复主键不改变集合", func() {
			err := c.Add(newUser(2, "Bobby"))
			So(errors.Is(err, rdb.ErrDuplicateKey), ShouldBeTrue)
			So(c.Count(), ShouldEqual, 3)
			found, _ := c.GetByID(2)
			So(found, ShouldEqual, bob)
		})

		Convey("拒绝没有主键或者不同类型的实体", func() {
			l, err := Load(source, "log")
			So(err, ShouldBeNil)
			So(errors.Is(c.Add(l), rdb.ErrSchema), ShouldBeTrue)

			m, err := Load(source, "membership")
			So(err, ShouldBeNil)
			So(m.SetID(map[string]any{"a": 1, "b": 1}), ShouldBeNil)
			So(errors.Is(c.Add(m), rdb.ErrSchema), ShouldBeTrue)
			So(c.Count(), ShouldEqual, 3)
		})

		Convey("多列主键查找", func() {
			mc := NewCollection()
			for _, id := range [][2]int{{1, 1}, {1, 2}, {2, 1}} {
				m, err := Load(source, "membership")
				So(err, ShouldBeNil)
				So(m.SetID(map[string]any{"a": id[0], "b": id[1]}), ShouldBeNil)
				So(mc.Add(m), ShouldBeNil)
			}
			found, err := mc.GetByID(1, 2)
			So(err, ShouldBeNil)
			So(found.IDValue(), ShouldResemble, []any{1, 2})
			again, err := mc.GetByID(found.IDValue())
			So(err, ShouldBeNil)
			So(again, ShouldPointTo, found)
			_, err = mc.GetByID(2, 2)
			So(errors.Is(err, rdb.ErrNotFound), ShouldBeTrue)
		})

		Convey("游标遍历可以重复", func() {
			collect := func() []*Entity {
				var result []*Entity
				for c.Rewind(); c.Valid(); c.Next() {
					So(c.Key(), ShouldEqual, len(result))
					result = append(result, c.Current())
				}
				return result
			}
			first := collect()
			So(first, ShouldResemble, []*Entity{alice, bob, carol})
			So(c.Current(), ShouldBeNil)
			So(collect(), ShouldResemble, first)
		})

		Convey("Seek", func() {
			So(c.Seek(2), ShouldBeNil)
			So(c.Current(), ShouldEqual, carol)

			err := c.Seek(c.Count())
			So(errors.Is(err, rdb.ErrIndex), ShouldBeTrue)
			So(c.Key(), ShouldEqual, 2)
			So(errors.Is(c.Seek(-1), rdb.ErrIndex), ShouldBeTrue)
		})

		Convey("All 与 Entities", func() {
			var names []any
			for i, e := range c.All() {
				So(i, ShouldEqual, len(names))
				names = append(names, e.MustGet("name"))
				if i == 1 {
					break
				}
			}
			So(names, ShouldResemble, []any{"Alice", "Bob"})

			entities := c.Entities()
			entities[0] = nil
			So(c.Entities()[0], ShouldEqual, alice)
		})

		Convey("Remove 后索引同步", func() {
			So(c.Seek(2), ShouldBeNil)
			So(c.Remove(0), ShouldBeNil)
			So(c.Count(), ShouldEqual, 2)
			So(c.Current(), ShouldEqual, carol)

			_, err := c.GetByID(1)
			So(errors.Is(err, rdb.ErrNotFound), ShouldBeTrue)
			found, err := c.GetByID(3)
			So(err, ShouldBeNil)
			So(found, ShouldEqual, carol)

			So(c.Add(newUser(1, "Alice again")), ShouldBeNil)
			So(errors.Is(c.Remove(5), rdb.ErrIndex), ShouldBeTrue)
		})

		Convey("Describe", func() {
			s, err := c.Describe()
			So(err, ShouldBeNil)
			rule := strings.Repeat("-", 116)
			So(s, ShouldStartWith, "Collection of (3) user entity\n"+rule+"\n[user]\n")
			So(strings.Count(s, rule), ShouldEqual, 4)
			So(s, ShouldContainSubstring, `= "Carol"`)
			So(c.String(), ShouldEqual, s)

			_, err = NewCollection().Describe()
			So(errors.Is(err, rdb.ErrIndex), ShouldBeTrue)
		})
	})
}
