// Package dataprocessing turns a raw social-media post export into a
// validated star schema.
//
// # Architecture
//
// The package is organized as a strict sequence of stages, each consuming
// the complete output of the previous one:
//
// 1. Parser: reads CSV or XLSX input into a domain.RawTable and checks the
// required columns
// 2. Cleaner: imputes nulls, parses dates, title-cases categoricals and
// drops duplicate post_ids
// 3. KPIDeriver: appends total_engagement, engagement_growth_rate,
// high_engagement_flag and avg_engagement_by_media
// 4. BuildDimensions: time, content, media and traffic dimensions with
// deterministic surrogate keys
// 5. Assemble: the fact table, one row per post
// 6. ValidateFact and ValidateStarSchema: the null policy, key uniqueness
// and referential integrity
//
// Transformer wires the stages together with a span and a duration metric
// per stage.
//
// # Usage
//
//	raw, err := dataprocessing.ParseFile("data/staging/instagram_raw.csv", "")
//	if err != nil {
//	    return err
//	}
//	transformer, err := dataprocessing.NewTransformer(cfg.Processing, logger)
//	if err != nil {
//	    return err
//	}
//	result, err := transformer.Transform(ctx, raw)
//
// # Data Flow
//
//	CSV/XLSX → RawTable → CleanTable → []KPIRecord → Dimensions → []FactRow
//
// # Error Handling
//
// Errors are *errors.AppError values:
//
//   - SCHEMA when a required input column is missing
//   - PARSING when the input cannot be read
//   - VALIDATION when a column cannot be imputed or the policy is invalid
//   - INTEGRITY when the fact table breaks the null policy or a key check
//
// Rows with an unparseable upload_date are dropped and counted in the
// CleanReport, not reported as errors.
package dataprocessing
