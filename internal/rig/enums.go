package rig

// NodeKind distinguishes the graph node variants.
type NodeKind string

const (
	NodeComponent         NodeKind = "component"
	NodeAggregator        NodeKind = "aggregator"
	NodeRunner            NodeKind = "runner"
	NodeUtility           NodeKind = "utility"
	NodeTest              NodeKind = "test"
	NodeInterface         NodeKind = "interface"
	NodeExternalComponent NodeKind = "external_component"
	NodeUnknown           NodeKind = "unknown"
)

// ComponentKind classifies the artifact a component produces.
type ComponentKind string

const (
	ComponentExecutable    ComponentKind = "executable"
	ComponentSharedLibrary ComponentKind = "shared_library"
	ComponentStaticLibrary ComponentKind = "static_library"
	ComponentModuleLibrary ComponentKind = "module_library"
	ComponentObjectLibrary ComponentKind = "object_library"
	ComponentVM            ComponentKind = "vm"
	ComponentInterpreted   ComponentKind = "interpreted"
	ComponentUnknown       ComponentKind = "unknown"
)

// Runtime identifies the execution environment of a component.
type Runtime string

const (
	RuntimeMSVCC     Runtime = "native-msvc-c"
	RuntimeMSVCCPP   Runtime = "native-msvc-cpp"
	RuntimeClangLike Runtime = "native-clang-like"
	RuntimeJVM       Runtime = "jvm"
	RuntimeDotNet    Runtime = "dotnet"
	RuntimeGo        Runtime = "go"
	RuntimePython    Runtime = "python"
	RuntimeNodeJS    Runtime = "nodejs"
	RuntimeUnknown   Runtime = "unknown"
)

// Language identifies a source language.
type Language string

const (
	LanguageC          Language = "c"
	LanguageCpp        Language = "cpp"
	LanguageCSharp     Language = "csharp"
	LanguageJava       Language = "java"
	LanguageGo         Language = "go"
	LanguagePython     Language = "python"
	LanguageRust       Language = "rust"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageFortran    Language = "fortran"
	LanguageSwift      Language = "swift"
	LanguageObjC       Language = "objc"
	LanguageObjCpp     Language = "objcpp"
	LanguageUnknown    Language = "unknown"
)

// TestFramework identifies the framework a test is written against.
type TestFramework string

const (
	FrameworkCTest     TestFramework = "ctest"
	FrameworkGTest     TestFramework = "gtest"
	FrameworkCatch2    TestFramework = "catch2"
	FrameworkBoostTest TestFramework = "boosttest"
	FrameworkPytest    TestFramework = "pytest"
	FrameworkJest      TestFramework = "jest"
	FrameworkCargoTest TestFramework = "cargotest"
	FrameworkJUnit     TestFramework = "junit"
	FrameworkUnknown   TestFramework = "unknown"
)

// LocationAction records how an artifact arrived at a location.
type LocationAction string

const (
	ActionBuild         LocationAction = "build"
	ActionCopy          LocationAction = "copy"
	ActionMove          LocationAction = "move"
	ActionInstall       LocationAction = "install"
	ActionUnknownAction LocationAction = "unknown"
)

// PackageManager tags the provenance of an external package.
type PackageManager string

const (
	ManagerSystem  PackageManager = "system"
	ManagerVcpkg   PackageManager = "vcpkg"
	ManagerConan   PackageManager = "conan"
	ManagerNpm     PackageManager = "npm"
	ManagerCargo   PackageManager = "cargo"
	ManagerPip     PackageManager = "pip"
	ManagerMaven   PackageManager = "maven"
	ManagerGradle  PackageManager = "gradle"
	ManagerUnknown PackageManager = "unknown"
)

// VersionUnknown marks an external package whose version could not be derived
// deterministically.
const VersionUnknown = "unknown"
