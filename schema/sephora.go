package schema

// Brand is the schema for one brand listing page.
//
// Raw document shape:
//
//	brandId, displayName, totalProducts
//	products[] -> {productId}
func Brand() *Schema {
	return &Schema{
		Entity:   "brand",
		Table:    "brand_info",
		SerialPK: "brand_id_db",
		Fields: []Field{
			{Target: "brand_id", Source: "brandId", Coerce: CoerceInt, SQLType: "int"},
			{Target: "brand_name", Source: "displayName", Coerce: CoerceString, SQLType: "text"},
			{Target: "products", Source: "products", Transform: UnwrapIDList("productId"), SQLType: "text[]"},
			{Target: "total_products", Source: "totalProducts", Coerce: CoerceInt, SQLType: "int"},
		},
	}
}

// Product is the schema for one product detail document.
//
// Raw document shape:
//
//	productDetails -> productId, displayName, brand{brandId, displayName},
//	                  lovesCount, rating, reviews
//	currentSku     -> size, variation*, ingredientDesc, listPrice, valuePrice,
//	                  salePrice, is* flags, highlights[]
//	parentCategory -> up to three nested levels of {displayName, parentCategory}
//	onSaleChildSkus[], regularChildSkus[] -> {listPrice, salePrice}
func Product() *Schema {
	return &Schema{
		Entity:   "product",
		Table:    "product_info",
		SerialPK: "product_id_db",
		Fields: []Field{
			{Target: "product_id", Source: "productDetails.productId", Coerce: CoerceString, SQLType: "text"},
			{Target: "product_name", Source: "productDetails.displayName", Coerce: CoerceString, Transform: CleanText, SQLType: "text"},
			{Target: "brand_id", Source: "productDetails.brand.brandId", Coerce: CoerceInt, SQLType: "int"},
			{Target: "brand_name", Source: "productDetails.brand.displayName", Coerce: CoerceString, Transform: CleanText, SQLType: "text"},
			{Target: "loves_count", Source: "productDetails.lovesCount", Coerce: CoerceInt, SQLType: "int"},
			{Target: "rating", Source: "productDetails.rating", Coerce: CoerceFloat, SQLType: "numeric"},
			{Target: "reviews", Source: "productDetails.reviews", Coerce: CoerceInt, SQLType: "int"},
			{Target: "size", Source: "currentSku.size", Coerce: CoerceString, Transform: CleanOptionalText, SQLType: "text"},
			{Target: "variation_type", Source: "currentSku.variationType", Coerce: CoerceString, Transform: CleanOptionalText, SQLType: "text"},
			{Target: "variation_value", Source: "currentSku.variationValue", Coerce: CoerceString, Transform: CleanOptionalText, SQLType: "text"},
			{Target: "variation_desc", Source: "currentSku.variationDesc", Coerce: CoerceString, SQLType: "text"},
			{Target: "ingredients", Source: "currentSku.ingredientDesc", Coerce: CoerceString, Transform: CleanIngredients, SQLType: "text[]"},
			{Target: "price_usd", Source: "currentSku.listPrice", Coerce: CoerceString, Transform: ParseCurrency, SQLType: "numeric"},
			{Target: "value_price_usd", Source: "currentSku.valuePrice", Coerce: CoerceString, Transform: ParseValuePrice, SQLType: "numeric"},
			{Target: "sale_price_usd", Source: "currentSku.salePrice", Coerce: CoerceString, Transform: ParseCurrency, SQLType: "numeric"},
			{Target: "limited_edition", Source: "currentSku.isLimitedEdition", Coerce: CoerceBoolInt, SQLType: "int"},
			{Target: "new", Source: "currentSku.isNew", Coerce: CoerceBoolInt, SQLType: "int"},
			{Target: "online_only", Source: "currentSku.isOnlineOnly", Coerce: CoerceBoolInt, SQLType: "int"},
			{Target: "out_of_stock", Source: "currentSku.isOutOfStock", Coerce: CoerceBoolInt, SQLType: "int"},
			{Target: "sephora_exclusive", Source: "currentSku.isSephoraExclusive", Coerce: CoerceBoolInt, SQLType: "int"},
			{Target: "highlights", Source: "currentSku.highlights", Transform: UnwrapHighlights, SQLType: "text[]"},
			{Target: "primary_category", Source: "parentCategory", Transform: CategoryLevel(0), SQLType: "text"},
			{Target: "secondary_category", Source: "parentCategory", Transform: CategoryLevel(1), SQLType: "text"},
			{Target: "tertiary_category", Source: "parentCategory", Transform: CategoryLevel(2), SQLType: "text"},
			{Target: "child_count", Transform: ChildCount, SQLType: "int"},
			{Target: "child_max_price", Transform: ChildMaxPrice, SQLType: "numeric"},
			{Target: "child_min_price", Transform: ChildMinPrice, SQLType: "numeric"},
		},
	}
}

// Review is the schema for one entry of a review listing page. The product_id
// column is a placeholder stamped by the pipeline, since the review payload
// does not carry the parent product.
func Review() *Schema {
	return &Schema{
		Entity:   "review",
		Table:    "product_reviews",
		SerialPK: "review_id_db",
		Fields: []Field{
			{Target: "author_id", Source: "AuthorId", Coerce: CoerceInt, SQLType: "int"},
			{Target: "rating", Source: "Rating", Coerce: CoerceInt, SQLType: "int"},
			{Target: "is_recommended", Source: "IsRecommended", Coerce: CoerceBoolInt, SQLType: "int"},
			{Target: "helpfulness", Source: "Helpfulness", Coerce: CoerceFloat, SQLType: "numeric"},
			{Target: "total_feedback_count", Source: "TotalFeedbackCount", Coerce: CoerceInt, SQLType: "int"},
			{Target: "total_neg_feedback_count", Source: "TotalNegativeFeedbackCount", Coerce: CoerceInt, SQLType: "int"},
			{Target: "total_pos_feedback_count", Source: "TotalPositiveFeedbackCount", Coerce: CoerceInt, SQLType: "int"},
			{Target: "submission_time", Source: "SubmissionTime", Coerce: CoerceString, Transform: TruncateDate, SQLType: "text"},
			{Target: "review_text", Source: "ReviewText", Coerce: CoerceString, Transform: CleanReviewText, SQLType: "text"},
			{Target: "review_title", Source: "Title", Coerce: CoerceString, Transform: CleanReviewText, SQLType: "text"},
			{Target: "skin_tone", Source: "ContextDataValues.skinTone.Value", Coerce: CoerceString, SQLType: "text"},
			{Target: "eye_color", Source: "ContextDataValues.eyeColor.Value", Coerce: CoerceString, SQLType: "text"},
			{Target: "skin_type", Source: "ContextDataValues.skinType.Value", Coerce: CoerceString, SQLType: "text"},
			{Target: "hair_color", Source: "ContextDataValues.hairColor.Value", Coerce: CoerceString, SQLType: "text"},
			{Target: "is_staff", Source: "ContextDataValues.StaffContext.Value", Coerce: CoerceBoolInt, SQLType: "int"},
			{Target: "incentivized_review", Source: "ContextDataValues.IncentivizedReview.Value", Coerce: CoerceBoolInt, SQLType: "int"},
			{Target: "product_id", SQLType: "text"},
		},
	}
}

// UnwrapProductIDs extracts the plain product-ID list from a raw brand page,
// used when merging extra listing pages into an aggregated brand.
func UnwrapProductIDs(doc map[string]any) []string {
	raw, ok := doc["products"].([]any)
	if !ok {
		return nil
	}
	unwrapped, err := UnwrapIDList("productId")(raw)
	if err != nil {
		return nil
	}
	ids, _ := unwrapped.([]string)
	return ids
}
