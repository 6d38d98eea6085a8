// Package config loads harness configuration from COMPILETEST_* environment
// variables. LoadConfig first reads a .env file from the working directory
// when one exists; variables already set in the environment take precedence.
//
// Toolchain:
//
//	COMPILETEST_KOTLINC="kotlinc"
//	COMPILETEST_KOTLINC_JS="kotlinc-js"
//	COMPILETEST_JAVAC="javac"
//	COMPILETEST_DOCKER_IMAGE="zenika/kotlin:1.9"   # run compilers in a container
//	COMPILETEST_DOCKER_MEMORY="2147483648"
//	COMPILETEST_DOCKER_CPUS="2"
//	COMPILETEST_JDK_HOME="/usr/lib/jvm/java-17"
//	COMPILETEST_PLUGIN_DIRS="/opt/plugins:/usr/share/compiletest/plugins"
//	COMPILETEST_CLASSPATH_MANIFEST="classpath.yaml"
//
// Compilation:
//
//	COMPILETEST_WORK_DIR="/tmp/compiletest"
//	COMPILETEST_INHERIT_CLASSPATH="false"
//	COMPILETEST_VERBOSE="false"
//	COMPILETEST_JVM_TARGET="17"
//	COMPILETEST_MAX_WORKERS="4"
//	COMPILETEST_TIMEOUT="5m"
//	COMPILETEST_KEEP_WORK_DIRS="false"
//
// Artifact export:
//
//	COMPILETEST_S3_BUCKET="compile-outputs"
//	COMPILETEST_S3_PREFIX="compilations/"
//	COMPILETEST_S3_REGION="us-east-1"
//	COMPILETEST_S3_ENDPOINT="http://localhost:9000"
//	COMPILETEST_S3_VERIFY_CHECKSUM="true"
//
// Observability:
//
//	COMPILETEST_LOG_LEVEL="info"        # trace, debug, info, warn, error
//	COMPILETEST_LOG_FORMAT="text"       # text or json
//	COMPILETEST_METRICS_ADDR=":9090"
//	COMPILETEST_OTEL_ENABLED="false"
//	COMPILETEST_OTEL_ENDPOINT="localhost:4317"
//	COMPILETEST_OTEL_SERVICE_NAME="compiletest"
//	COMPILETEST_OTEL_INSECURE="true"
//
// Invalid numbers and durations fall back to their defaults; Validate rejects
// combinations that cannot work.
package config
