package schema

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/entorm/cfg"
	"github.com/hatlonely/entorm/rdb"
)

const ordersIni = `
[table]
name = orders
engine = InnoDB
charset = utf8mb4
collation = utf8mb4_general_ci
comment = customer orders
primaryKey = shop_id, order_id
unique = reference

[table.uniqueKeys]
uq_orders_customer = customer_id,created_at

[table.foreignKey.fk_orders_customer]
columns = customer_id
refTable = customers
refColumns = id
onDelete = cascade

[table.foreignKey.fk_orders_shop]
columns = shop_id
refTable = shops
refColumns = id
match = FULL
onUpdate = no  action

[shop_id]
type = int
size = 11
nullable = false
unsigned = true

[order_id]
type = INT
size = 11
nullable = false
unsigned = true
autoIncrement = true

[customer_id]
type = INT
size = 11
default = NULL

[reference]
type = VARCHAR
size = 32
comment = external reference

[amount]
type = DECIMAL
size = 10,2
default = 0

[created_at]
type = TIMESTAMP
default = current_timestamp
storage = memory
`

func mustDecode(data string, format cfg.Format) *cfg.Node {
	doc, err := Decode([]byte(data), format)
	So(err, ShouldBeNil)
	return doc
}

func TestParse(t *testing.T) {
	Convey("解析完整的表定义", t, func() {
		table, err := Parse("order", mustDecode(ordersIni, cfg.FormatINI))
		So(err, ShouldBeNil)

		Convey("表元数据", func() {
			So(table.Entity, ShouldEqual, "order")
			So(table.Name, ShouldEqual, "orders")
			So(table.Engine, ShouldEqual, "InnoDB")
			So(table.Charset, ShouldEqual, "utf8mb4")
			So(table.Collation, ShouldEqual, "utf8mb4_general_ci")
			So(table.Comment, ShouldEqual, "customer orders")
		})

		Convey("列按文档顺序", func() {
			So(table.ColumnNames(), ShouldResemble, []string{
				"shop_id", "order_id", "customer_id", "reference", "amount", "created_at",
			})
		})

		Convey("列属性", func() {
			c, ok := table.Column("shop_id")
			So(ok, ShouldBeTrue)
			So(c.Type, ShouldEqual, ColumnType("INT"))
			So(c.TypeWithSize(), ShouldEqual, "INT(11)")
			So(c.Nullable, ShouldBeFalse)
			So(c.Unsigned, ShouldBeTrue)
			So(c.AutoIncrement, ShouldBeFalse)

			c, _ = table.Column("order_id")
			So(c.AutoIncrement, ShouldBeTrue)

			c, _ = table.Column("customer_id")
			So(c.Nullable, ShouldBeTrue)
			So(c.Default.Kind, ShouldEqual, DefaultNull)

			c, _ = table.Column("reference")
			So(c.Comment, ShouldEqual, "external reference")
			So(c.Default.Kind, ShouldEqual, DefaultNone)

			c, _ = table.Column("amount")
			So(c.TypeWithSize(), ShouldEqual, "DECIMAL(10,2)")
			So(c.Default, ShouldResemble, Default{Kind: DefaultValue, Value: "0"})

			c, _ = table.Column("created_at")
			So(c.TypeWithSize(), ShouldEqual, "TIMESTAMP")
			So(c.Default, ShouldResemble, Default{Kind: DefaultExpression, Value: "CURRENT_TIMESTAMP"})
			So(c.Storage, ShouldEqual, "MEMORY")

			_, ok = table.Column("missing")
			So(ok, ShouldBeFalse)
		})

		Convey("约束", func() {
			So(table.PrimaryKey(), ShouldResemble, []string{"shop_id", "order_id"})
			So(table.Constraints.Primary.Name, ShouldEqual, "pk_orders")
			So(table.IsPrimary("order_id"), ShouldBeTrue)
			So(table.IsPrimary("amount"), ShouldBeFalse)

			So(table.Constraints.Unique, ShouldResemble, &Key{Name: "uq_orders", Columns: []string{"reference"}})
			So(table.Constraints.UniqueKeys, ShouldResemble, []Key{
				{Name: "uq_orders_customer", Columns: []string{"customer_id", "created_at"}},
			})

			So(table.Constraints.ForeignKeys, ShouldHaveLength, 2)
			So(table.Constraints.ForeignKeys[0].Name, ShouldEqual, "fk_orders_customer")

			fk, ok := table.Constraints.ForeignKey("fk_orders_customer")
			So(ok, ShouldBeTrue)
			So(fk, ShouldResemble, ForeignKey{
				Name:       "fk_orders_customer",
				Columns:    []string{"customer_id"},
				RefTable:   "customers",
				RefColumns: []string{"id"},
				OnDelete:   "CASCADE",
			})

			fk, _ = table.Constraints.ForeignKey("fk_orders_shop")
			So(fk.Match, ShouldEqual, "FULL")
			So(fk.OnUpdate, ShouldEqual, "NO ACTION")
			So(fk.OnDelete, ShouldBeEmpty)

			_, ok = table.Constraints.ForeignKey("fk_missing")
			So(ok, ShouldBeFalse)
		})

		Convey("描述", func() {
			So(table.String(), ShouldStartWith, "orders(shop_id INT(11), order_id INT(11)")
		})
	})

	Convey("YAML 定义使用数组描述列列表", t, func() {
		table, err := Parse("user", mustDecode(`
table:
  name: users
  primaryKey: [id]
  primaryKeyName: pk_user_id
id:
  type: INT
  autoIncrement: true
name:
  type: VARCHAR
  size: 50
  default: anonymous
`, cfg.FormatYAML))
		So(err, ShouldBeNil)
		So(table.Engine, ShouldEqual, DefaultEngine)
		So(table.Constraints.Primary, ShouldResemble, &Key{Name: "pk_user_id", Columns: []string{"id"}})
		c, _ := table.Column("name")
		So(c.Default, ShouldResemble, Default{Kind: DefaultValue, Value: "anonymous"})
	})

	Convey("INI 的值按原样保留", t, func() {
		table, err := ParseData("address", []byte(`
[table]
name = addresses
comment = 1.50
primaryKey = id

[id]
type = INT
size = 11
autoIncrement = 1

[zip]
type = VARCHAR
size = 5
nullable = false
default = 007
comment = 0010

[active]
type = TINYINT
default = true
`), cfg.FormatINI)
		So(err, ShouldBeNil)
		So(table.Comment, ShouldEqual, "1.50")

		c, _ := table.Column("id")
		So(c.TypeWithSize(), ShouldEqual, "INT(11)")
		So(c.AutoIncrement, ShouldBeTrue)

		c, _ = table.Column("zip")
		So(c.Default, ShouldResemble, Default{Kind: DefaultValue, Value: "007"})
		So(c.Comment, ShouldEqual, "0010")
		So(c.Nullable, ShouldBeFalse)

		c, _ = table.Column("active")
		So(c.Default, ShouldResemble, Default{Kind: DefaultValue, Value: "true"})
	})

	Convey("主键列总是 NOT NULL", t, func() {
		table, err := ParseData("user", []byte("[table]\nname = users\nprimaryKey = id\n[id]\ntype = INT\n[name]\ntype = TEXT\n"), cfg.FormatINI)
		So(err, ShouldBeNil)
		c, _ := table.Column("id")
		So(c.Nullable, ShouldBeFalse)
		c, _ = table.Column("name")
		So(c.Nullable, ShouldBeTrue)
	})

	Convey("没有主键的表", t, func() {
		table, err := Parse("log", mustDecode("[table]\nname = logs\n[message]\ntype = TEXT\n", cfg.FormatINI))
		So(err, ShouldBeNil)
		So(table.PrimaryKey(), ShouldBeEmpty)
		So(table.Constraints.Primary, ShouldBeNil)
	})

	Convey("非法定义", t, func() {
		cases := []struct {
			name string
			data string
		}{
			{"缺少 table", "[id]\ntype = INT\n"},
			{"缺少表名", "[table]\nengine = InnoDB\n[id]\ntype = INT\n"},
			{"没有列", "[table]\nname = t\n"},
			{"主键引用不存在的列", "[table]\nname = t\nprimaryKey = id,missing\n[id]\ntype = INT\n"},
			{"主键重复列", "[table]\nname = t\nprimaryKey = id,id\n[id]\ntype = INT\n"},
			{"唯一键引用不存在的列", "[table]\nname = t\nunique = email\n[id]\ntype = INT\n"},
			{"外键缺少 refTable", "[table]\nname = t\n[table.foreignKey.fk]\ncolumns = id\nrefColumns = id\n[id]\ntype = INT\n"},
			{"外键缺少 refColumns", "[table]\nname = t\n[table.foreignKey.fk]\ncolumns = id\nrefTable = x\n[id]\ntype = INT\n"},
			{"外键列数不一致", "[table]\nname = t\n[table.foreignKey.fk]\ncolumns = id\nrefTable = x\nrefColumns = a,b\n[id]\ntype = INT\n"},
			{"外键引用不存在的列", "[table]\nname = t\n[table.foreignKey.fk]\ncolumns = gid\nrefTable = x\nrefColumns = id\n[id]\ntype = INT\n"},
			{"非法的 onDelete", "[table]\nname = t\n[table.foreignKey.fk]\ncolumns = id\nrefTable = x\nrefColumns = id\nonDelete = DROP\n[id]\ntype = INT\n"},
			{"非法表名", "[table]\nname = users;drop\n[id]\ntype = INT\n"},
			{"非法列名", "[table]\nname = t\n[1id]\ntype = INT\n"},
			{"缺少列类型", "[table]\nname = t\n[id]\nsize = 11\n"},
			{"非法 size", "[table]\nname = t\n[id]\ntype = INT\nsize = big\n"},
			{"非法 nullable", "[table]\nname = t\n[id]\ntype = INT\nnullable = maybe\n"},
			{"未知列属性", "[table]\nname = t\n[id]\ntype = INT\nautoincrement = true\n"},
			{"未知表属性", "[table]\nname = t\nprimary = id\n[id]\ntype = INT\n"},
			{"非法 storage", "[table]\nname = t\n[id]\ntype = INT\nstorage = tape\n"},
			{"列不是 section", "name = x\n[table]\nname = t\n[id]\ntype = INT\n"},
			{"主键列声明可空", "[table]\nname = t\nprimaryKey = id\n[id]\ntype = INT\nnullable = true\n"},
		}
		for _, c := range cases {
			Convey(c.name, func() {
				_, err := Parse("t", mustDecode(c.data, cfg.FormatINI))
				So(err, ShouldNotBeNil)
				So(errors.Is(err, rdb.ErrSchema), ShouldBeTrue)
			})
		}

		Convey("nil 文档", func() {
			_, err := Parse("t", nil)
			So(errors.Is(err, rdb.ErrSchema), ShouldBeTrue)
		})
	})
}
