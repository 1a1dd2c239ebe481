package database

import "gorm.io/gorm"

// sqliteTables mirrors the gorm models with SQLite-compatible DDL. AutoMigrate would emit the
// PostgreSQL-only gen_random_uuid() defaults, so SQLite databases are created from this list.
var sqliteTables = []string{
	`CREATE TABLE IF NOT EXISTS "users" (
		"id" TEXT PRIMARY KEY,
		"email" TEXT NOT NULL UNIQUE,
		"password" TEXT NOT NULL,
		"name" TEXT,
		"phone" TEXT,
		"role" TEXT DEFAULT 'customer',
		"is_blocked" INTEGER DEFAULT 0,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		"deleted_at" DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_deleted_at ON "users"("deleted_at")`,

	`CREATE TABLE IF NOT EXISTS "categories" (
		"id" TEXT PRIMARY KEY,
		"name" TEXT NOT NULL UNIQUE,
		"slug" TEXT NOT NULL UNIQUE,
		"description" TEXT,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		"deleted_at" DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_deleted_at ON "categories"("deleted_at")`,

	`CREATE TABLE IF NOT EXISTS "products" (
		"id" TEXT PRIMARY KEY,
		"name" TEXT NOT NULL,
		"slug" TEXT NOT NULL UNIQUE,
		"description" TEXT,
		"brand" TEXT,
		"price" NUMERIC NOT NULL,
		"stock" INTEGER DEFAULT 0,
		"category_id" TEXT NOT NULL,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		"deleted_at" DATETIME,
		CONSTRAINT fk_products_category FOREIGN KEY ("category_id") REFERENCES "categories"("id")
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_deleted_at ON "products"("deleted_at")`,
	`CREATE INDEX IF NOT EXISTS idx_products_name ON "products"("name")`,
	`CREATE INDEX IF NOT EXISTS idx_products_brand ON "products"("brand")`,
	`CREATE INDEX IF NOT EXISTS idx_products_stock ON "products"("stock")`,
	`CREATE INDEX IF NOT EXISTS idx_products_category_id ON "products"("category_id")`,

	`CREATE TABLE IF NOT EXISTS "product_variants" (
		"id" TEXT PRIMARY KEY,
		"product_id" TEXT NOT NULL,
		"name" TEXT NOT NULL,
		"sku" TEXT NOT NULL UNIQUE,
		"price" NUMERIC,
		"stock" INTEGER DEFAULT 0,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		"deleted_at" DATETIME,
		CONSTRAINT fk_product_variants_product FOREIGN KEY ("product_id") REFERENCES "products"("id")
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_variants_product_id ON "product_variants"("product_id")`,
	`CREATE INDEX IF NOT EXISTS idx_product_variants_deleted_at ON "product_variants"("deleted_at")`,

	`CREATE TABLE IF NOT EXISTS "product_images" (
		"id" TEXT PRIMARY KEY,
		"product_id" TEXT NOT NULL,
		"image_url" TEXT NOT NULL,
		"object_path" TEXT,
		"is_primary" INTEGER DEFAULT 0,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		"deleted_at" DATETIME,
		CONSTRAINT fk_product_images_product FOREIGN KEY ("product_id") REFERENCES "products"("id")
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_images_product_id ON "product_images"("product_id")`,
	`CREATE INDEX IF NOT EXISTS idx_product_images_deleted_at ON "product_images"("deleted_at")`,

	`CREATE TABLE IF NOT EXISTS "carts" (
		"id" TEXT PRIMARY KEY,
		"user_id" TEXT NOT NULL UNIQUE,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		CONSTRAINT fk_carts_user FOREIGN KEY ("user_id") REFERENCES "users"("id")
	)`,

	`CREATE TABLE IF NOT EXISTS "cart_items" (
		"id" TEXT PRIMARY KEY,
		"cart_id" TEXT NOT NULL,
		"product_id" TEXT NOT NULL,
		"variant_id" TEXT,
		"variant_key" TEXT NOT NULL DEFAULT '',
		"quantity" INTEGER NOT NULL DEFAULT 1,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		CONSTRAINT fk_cart_items_cart FOREIGN KEY ("cart_id") REFERENCES "carts"("id"),
		CONSTRAINT fk_cart_items_product FOREIGN KEY ("product_id") REFERENCES "products"("id")
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_line ON "cart_items"("cart_id","product_id","variant_key")`,

	`CREATE TABLE IF NOT EXISTS "orders" (
		"id" TEXT PRIMARY KEY,
		"user_id" TEXT NOT NULL,
		"order_number" TEXT NOT NULL UNIQUE,
		"status" TEXT DEFAULT 'PENDING',
		"total" NUMERIC NOT NULL,
		"shipping_address" TEXT,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		"deleted_at" DATETIME,
		CONSTRAINT fk_orders_user FOREIGN KEY ("user_id") REFERENCES "users"("id")
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON "orders"("user_id")`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON "orders"("status")`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON "orders"("created_at")`,
	`CREATE INDEX IF NOT EXISTS idx_orders_deleted_at ON "orders"("deleted_at")`,

	`CREATE TABLE IF NOT EXISTS "order_items" (
		"id" TEXT PRIMARY KEY,
		"order_id" TEXT NOT NULL,
		"product_id" TEXT NOT NULL,
		"variant_id" TEXT,
		"product_name" TEXT,
		"variant_name" TEXT,
		"quantity" INTEGER NOT NULL,
		"unit_price" NUMERIC NOT NULL,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		CONSTRAINT fk_order_items_order FOREIGN KEY ("order_id") REFERENCES "orders"("id")
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON "order_items"("order_id")`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_product_id ON "order_items"("product_id")`,

	`CREATE TABLE IF NOT EXISTS "addresses" (
		"id" TEXT PRIMARY KEY,
		"user_id" TEXT NOT NULL,
		"recipient" TEXT NOT NULL,
		"street" TEXT NOT NULL,
		"city" TEXT NOT NULL,
		"province" TEXT,
		"postal_code" TEXT,
		"phone" TEXT,
		"is_default" INTEGER DEFAULT 0,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		"deleted_at" DATETIME,
		CONSTRAINT fk_addresses_user FOREIGN KEY ("user_id") REFERENCES "users"("id")
	)`,
	`CREATE INDEX IF NOT EXISTS idx_addresses_user_id ON "addresses"("user_id")`,
	`CREATE INDEX IF NOT EXISTS idx_addresses_deleted_at ON "addresses"("deleted_at")`,

	`CREATE TABLE IF NOT EXISTS "reviews" (
		"id" TEXT PRIMARY KEY,
		"user_id" TEXT NOT NULL,
		"product_id" TEXT NOT NULL,
		"rating" INTEGER NOT NULL,
		"comment" TEXT,
		"created_at" DATETIME,
		"updated_at" DATETIME,
		CONSTRAINT fk_reviews_user FOREIGN KEY ("user_id") REFERENCES "users"("id"),
		CONSTRAINT fk_reviews_product FOREIGN KEY ("product_id") REFERENCES "products"("id")
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_review_user_product ON "reviews"("user_id","product_id")`,

	`CREATE TABLE IF NOT EXISTS "wishlist_items" (
		"id" TEXT PRIMARY KEY,
		"user_id" TEXT NOT NULL,
		"product_id" TEXT NOT NULL,
		"created_at" DATETIME,
		CONSTRAINT fk_wishlist_items_user FOREIGN KEY ("user_id") REFERENCES "users"("id"),
		CONSTRAINT fk_wishlist_items_product FOREIGN KEY ("product_id") REFERENCES "products"("id")
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_wishlist_user_product ON "wishlist_items"("user_id","product_id")`,
}

// sqliteTableNames lists the tables in child-to-parent order, the order rows must be
// deleted in.
var sqliteTableNames = []string{
	"wishlist_items",
	"reviews",
	"addresses",
	"order_items",
	"orders",
	"cart_items",
	"carts",
	"product_images",
	"product_variants",
	"products",
	"categories",
	"users",
}

// CreateSQLiteSchema creates every table with SQLite-compatible DDL.
func CreateSQLiteSchema(db *gorm.DB) error {
	for _, sql := range sqliteTables {
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}

// TruncateSQLite deletes all rows, children first. Tests use it to get a clean database.
func TruncateSQLite(db *gorm.DB) {
	for _, table := range sqliteTableNames {
		db.Exec(`DELETE FROM "` + table + `"`)
	}
}
