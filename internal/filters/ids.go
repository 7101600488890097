package filters

import "github.com/google/uuid"

// Filter kind, variant and connector identifiers. Graph descriptions refer
// to these values literally.
var (
	PassthroughID      = uuid.MustParse("73bb85aa-cbd5-4e7c-8a48-a769857c5b68")
	passthroughVariant = uuid.MustParse("5e62a7f9-b420-49a1-b031-cc8568d7e831")
	PassthroughIn      = uuid.MustParse("68e146b2-5893-465e-b00a-51e5245aadfa")
	PassthroughOut     = uuid.MustParse("49729d94-fb0b-43cc-aa40-a6ceb3e00d85")

	LowPassFFTID      = uuid.MustParse("ee7fe3a8-3778-4c4e-832e-49a364010072")
	lowPassFFTVariant = uuid.MustParse("972c0ddb-cf4d-4ddf-84cc-0e0fb0f9e88d")
	LowPassFFTIn      = uuid.MustParse("e4a6057b-8581-4ec8-85a6-bf0f34f1926d")
	LowPassFFTOut     = uuid.MustParse("e97a5125-fe87-4e04-be75-82f8fa10b689")

	TemporalLowPassID      = uuid.MustParse("e214747c-d0ae-43e9-8657-190cd4bf4bb0")
	temporalLowPassVariant = uuid.MustParse("25a0ab78-1e83-4604-ae63-2906a6adcc0f")
	TemporalLowPassIn      = uuid.MustParse("3e0df760-5206-443c-af12-8b20c1b8d948")
	TemporalLowPassOut     = uuid.MustParse("fcc57a0c-ee32-4775-b7e2-1eb93f7803b5")

	ArithmeticID      = uuid.MustParse("a998a211-1d85-4afb-bfc9-c005512502e9")
	arithmeticVariant = uuid.MustParse("f2d19e6c-7eaf-4d0a-9e43-80758efc6259")
	ArithmeticA       = uuid.MustParse("ff19b1e7-c8a7-4e72-913e-92912a7b0cda")
	ArithmeticB       = uuid.MustParse("89e5a40e-dac5-4475-8e15-e56c708a90ec")
	ArithmeticOut     = uuid.MustParse("a1c68e35-f509-46f9-bf92-78cd83e826ad")

	StatisticsID      = uuid.MustParse("a3866327-f63e-490b-98ed-75235058ebed")
	statisticsVariant = uuid.MustParse("805ecbfd-9aad-4529-b865-443c3c136d4e")
	StatisticsIn      = uuid.MustParse("7ecfac56-ea25-4ab6-a8fc-0791104cb678")
	StatisticsMean    = uuid.MustParse("4ada8263-f430-4260-8e5b-77a81cc77daf")
	StatisticsStdDev  = uuid.MustParse("3f714db5-2a1e-4ea3-adff-1c1225bdf93f")

	RangeCheckID      = uuid.MustParse("0c72a049-1699-4e73-91a3-4e6a06e07d11")
	rangeCheckVariant = uuid.MustParse("e7962141-1476-4e33-9b86-09f4eb63da99")
	RangeCheckIn      = uuid.MustParse("4a6248d6-7ef7-4ace-a189-5a909246d55a")
	RangeCheckOut     = uuid.MustParse("e393c31b-3f5d-4a1d-b1ea-c97f8396d4bd")
	RangeCheckNIO     = uuid.MustParse("3de18c33-9d6c-41d5-89f2-84992cbe62c2")

	LineSelectID      = uuid.MustParse("6d905513-bead-4142-95cb-af9bfe30e28b")
	lineSelectVariant = uuid.MustParse("809bb11d-f3f3-4a1e-9992-7294e1f21405")
	LineSelectIn      = uuid.MustParse("eac0a51f-a6d0-40c7-a6a0-24ae8cc1db37")
	LineSelectOut     = uuid.MustParse("b6cb2b4c-b884-4400-80b1-56b7b3b280e4")

	ResultBufferID      = uuid.MustParse("f1194b2e-256f-4942-be24-6ff66da97251")
	resultBufferVariant = uuid.MustParse("89745075-fbe5-4604-aba4-0c2fec371207")
	ResultBufferIn      = uuid.MustParse("f5fef0cf-99a3-4e7c-bfdc-be48e5e11376")

	NIOBufferID      = uuid.MustParse("6556749a-f6ed-4177-993b-cad019a7dd20")
	nioBufferVariant = uuid.MustParse("2ae4368a-0643-47d0-a069-1aa9bae194ff")
	NIOBufferIn      = uuid.MustParse("2a750776-7fc0-49bd-a6ca-3b0234490331")
)
